package viewer

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"drone/protocol"
	"drone/world"
)

// Hub fans display frames out to connected viewers. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	Inbox   chan any
	frames  <-chan world.State
	clients map[string]Conn
	names   map[string]string
	last    []byte
	seq     uint64
	count   atomic.Int32
	done    chan struct{}
}

func NewHub(frames <-chan world.State) *Hub {
	return &Hub{
		Inbox:   make(chan any, 64),
		frames:  frames,
		clients: make(map[string]Conn),
		names:   make(map[string]string),
		done:    make(chan struct{}),
	}
}

// NumClients returns the current number of connected viewers.
func (h *Hub) NumClients() int {
	return int(h.count.Load())
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	frames := h.frames
	for {
		select {
		case <-ctx.Done():
			for id := range h.clients {
				h.removeClient(id)
			}
			return
		case cmd := <-h.Inbox:
			h.handleCommand(cmd)
		case s, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			h.broadcastState(s)
		}
	}
}

// send delivers cmd unless the hub has stopped.
func (h *Hub) send(cmd any) bool {
	select {
	case h.Inbox <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		id := uuid.NewString()
		name := c.Name
		if name == "" {
			name = "viewer " + id[:8]
		}
		h.clients[id] = c.Conn
		h.names[id] = name
		h.count.Store(int32(len(h.clients)))
		log.Printf("viewer %q joined (%s)", name, id)

		if b, err := protocol.Encode(protocol.MsgWelcome, protocol.Welcome{ClientID: id, RateHz: protocol.ViewerHz}); err == nil {
			_ = c.Conn.Send(b)
		}
		if h.last != nil {
			_ = c.Conn.Send(h.last)
		}
		c.Reply <- JoinResult{ClientID: id}
	case Leave:
		if name, ok := h.names[c.ClientID]; ok {
			log.Printf("viewer %q left", name)
		}
		h.removeClient(c.ClientID)
	}
}

func (h *Hub) removeClient(id string) {
	if c, ok := h.clients[id]; ok {
		_ = c.Close()
	}
	delete(h.clients, id)
	delete(h.names, id)
	h.count.Store(int32(len(h.clients)))
}

func (h *Hub) broadcastState(s world.State) {
	h.seq++
	b, err := protocol.Encode(protocol.MsgState, protocol.Frame(h.seq, s))
	if err != nil {
		log.Printf("viewer: encode frame: %v", err)
		return
	}
	h.last = b

	var failed []string
	for id, c := range h.clients {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.removeClient(id)
	}
}
