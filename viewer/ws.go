package viewer

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"drone/protocol"
)

var upgrader = websocket.Upgrader{
	// Viewers are read-only; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	writeWait  = 10 * time.Second
)

// wsConn serialises writes from the hub and the ping loop.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) Send(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

func (s *Service) wsHandler(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP -> WebSocket
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	conn := &wsConn{c: c}

	// Basic timeouts + pong handling (keeps connections healthy)
	c.SetReadLimit(1 << 16)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		_ = c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	reply := make(chan JoinResult, 1)
	if !s.hub.send(Join{Conn: conn, Name: r.URL.Query().Get("name"), Reply: reply}) {
		_ = conn.Close()
		return
	}
	var id string
	select {
	case res := <-reply:
		id = res.ClientID
	case <-s.hub.done:
		_ = conn.Close()
		return
	}
	defer s.hub.send(Leave{ClientID: id})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Viewers may only say hello; everything else is ignored.
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(msg)
		if err != nil || env.T != protocol.MsgHello {
			continue
		}
		if hello, err := protocol.DecodePayload[protocol.Hello](env); err == nil {
			log.Printf("viewer %s says hello as %q (v%d)", id, hello.Name, hello.V)
		}
	}
}
