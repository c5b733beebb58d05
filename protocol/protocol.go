package protocol

import (
	"encoding/json"
	"time"
)

// Viewer envelope types.
const (
	MsgHello   = "hello"
	MsgWelcome = "welcome"
	MsgState   = "state"
)

const (
	ViewerHz = 10
	PeerHz   = 33

	// PeerCycle is the listener's pause between exchanges.
	PeerCycle = 30 * time.Millisecond
)

// Envelope wraps every message sent to viewer clients.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"` // raw payload bytes
}
