package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed marks a message that could not be parsed.
var ErrMalformed = errors.New("protocol: malformed message")

type Kind uint8

const (
	KindUnknown Kind = iota
	KindOK
	KindAck
	KindSize
	KindDrone
	KindObst
	KindPos
	KindQuit
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindAck:
		return "ack"
	case KindSize:
		return "size"
	case KindDrone:
		return "drone"
	case KindObst:
		return "obst"
	case KindPos:
		return "pos"
	case KindQuit:
		return "q"
	}
	return "unknown"
}

// Acknowledgement tags, one per exchange step.
const (
	AckOK    = "ook"
	AckSize  = "sok"
	AckDrone = "dok"
	AckPos   = "pok"
	AckQuit  = "qok"
)

// Message is one peer link token. X and Y carry the size or position
// payload; Tag names the ack; Raw keeps the text of an unknown token.
type Message struct {
	Kind Kind   `msgpack:"k"`
	Tag  string `msgpack:"t,omitempty"`
	X    int    `msgpack:"x,omitempty"`
	Y    int    `msgpack:"y,omitempty"`
	Raw  string `msgpack:"r,omitempty"`
}

func OK() Message                { return Message{Kind: KindOK} }
func Ack(tag string) Message     { return Message{Kind: KindAck, Tag: tag} }
func Size(w, h int) Message      { return Message{Kind: KindSize, X: w, Y: h} }
func Drone() Message             { return Message{Kind: KindDrone} }
func Obst() Message              { return Message{Kind: KindObst} }
func Pos(x, y int) Message       { return Message{Kind: KindPos, X: x, Y: y} }
func QuitMsg() Message           { return Message{Kind: KindQuit} }
func Unknown(raw string) Message { return Message{Kind: KindUnknown, Raw: raw} }

// MaxSide bounds each dimension of a negotiated field.
const MaxSide = 1024

// Validate rejects payloads no peer could act on.
func (m Message) Validate() error {
	switch m.Kind {
	case KindSize:
		if m.X <= 0 || m.Y <= 0 || m.X > MaxSide || m.Y > MaxSide {
			return errors.Wrapf(ErrMalformed, "size %d %d", m.X, m.Y)
		}
	case KindAck:
		if !isAck(m.Tag) {
			return errors.Wrapf(ErrMalformed, "ack tag %q", m.Tag)
		}
	}
	return nil
}

// Line renders the message in the newline-delimited text format,
// without the trailing newline.
func (m Message) Line() string {
	switch m.Kind {
	case KindOK:
		return "ok"
	case KindAck:
		return m.Tag
	case KindSize:
		return fmt.Sprintf("size %d %d", m.X, m.Y)
	case KindDrone:
		return "drone"
	case KindObst:
		return "obst"
	case KindPos:
		return fmt.Sprintf("%d %d", m.X, m.Y)
	case KindQuit:
		return "q"
	}
	return m.Raw
}

func (m Message) String() string {
	return m.Line()
}

// ParseLine decodes one text token. Unrecognized words come back as
// KindUnknown; broken size or position payloads are ErrMalformed.
func ParseLine(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	switch line {
	case "ok":
		return OK(), nil
	case "drone":
		return Drone(), nil
	case "obst":
		return Obst(), nil
	case "q":
		return QuitMsg(), nil
	}
	if isAck(line) {
		return Ack(line), nil
	}

	fields := strings.Fields(line)
	if len(fields) > 0 && fields[0] == "size" {
		if len(fields) != 3 {
			return Unknown(line), errors.Wrapf(ErrMalformed, "%q", line)
		}
		w, h, err := pair(fields[1], fields[2])
		if err != nil {
			return Unknown(line), errors.Wrapf(ErrMalformed, "%q", line)
		}
		m := Size(w, h)
		return m, m.Validate()
	}
	if len(fields) > 0 && looksNumeric(fields[0]) {
		if len(fields) != 2 {
			return Unknown(line), errors.Wrapf(ErrMalformed, "%q", line)
		}
		x, y, err := pair(fields[0], fields[1])
		if err != nil {
			return Unknown(line), errors.Wrapf(ErrMalformed, "%q", line)
		}
		return Pos(x, y), nil
	}
	return Unknown(line), nil
}

func isAck(s string) bool {
	switch s {
	case AckOK, AckSize, AckDrone, AckPos, AckQuit:
		return true
	}
	return false
}

func looksNumeric(s string) bool {
	c := s[0]
	return c == '-' || c == '+' || (c >= '0' && c <= '9')
}

func pair(a, b string) (int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
