package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"drone/protocol"
	"drone/world"
)

type fakeConn struct {
	sendCh chan []byte
}

func (f *fakeConn) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sendCh <- cp
	return nil
}

func (f *fakeConn) Close() error {
	return nil
}

func nextOfType(t *testing.T, ch <-chan []byte, typ string) protocol.Envelope {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case b := <-ch:
			env, err := protocol.DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if env.T == typ {
				return env
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", typ)
		}
	}
}

func TestHubJoinWelcomeThenState(t *testing.T) {
	frames := make(chan world.State, 1)
	h := NewHub(frames)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	fc := &fakeConn{sendCh: make(chan []byte, 8)}
	reply := make(chan JoinResult, 1)
	h.Inbox <- Join{Conn: fc, Name: "test", Reply: reply}
	res := <-reply
	if res.ClientID == "" {
		t.Fatalf("expected client id, got empty")
	}

	welcome, err := protocol.DecodePayload[protocol.Welcome](nextOfType(t, fc.sendCh, protocol.MsgWelcome))
	if err != nil || welcome.ClientID != res.ClientID {
		t.Fatalf("welcome = %+v, %v", welcome, err)
	}

	s := world.NewState()
	s.Phase = world.Running
	s.Targets.Place(0, world.Cell{X: 6, Y: 7})
	frames <- s

	st, err := protocol.DecodePayload[protocol.State](nextOfType(t, fc.sendCh, protocol.MsgState))
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Phase != "running" || len(st.Targets) != 1 || st.Seq != 1 {
		t.Fatalf("state = %+v", st)
	}
	if h.NumClients() != 1 {
		t.Fatalf("clients = %d", h.NumClients())
	}

	h.Inbox <- Leave{ClientID: res.ClientID}
	deadline := time.Now().Add(time.Second)
	for h.NumClients() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.NumClients() != 0 {
		t.Fatalf("client not removed")
	}
}

func TestHubLateJoinerGetsLastFrame(t *testing.T) {
	frames := make(chan world.State, 1)
	h := NewHub(frames)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	frames <- world.NewState()
	first := &fakeConn{sendCh: make(chan []byte, 8)}
	reply := make(chan JoinResult, 1)
	h.Inbox <- Join{Conn: first, Reply: reply}
	<-reply
	// The frame has landed once the first viewer sees it.
	nextOfType(t, first.sendCh, protocol.MsgState)

	late := &fakeConn{sendCh: make(chan []byte, 8)}
	h.Inbox <- Join{Conn: late, Reply: reply}
	<-reply
	nextOfType(t, late.sendCh, protocol.MsgState)
}

func TestHealthStatusCodes(t *testing.T) {
	svc := NewService("127.0.0.1:0", nil)
	svc.Register("liveness", func() error { return nil })
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	svc.Register("peer", func() error { return errors.New("session lost") })
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body HealthCheckHttpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Checks) != 2 || body.Checks[1].Status || body.Checks[1].Name != "peer" {
		t.Fatalf("checks = %+v", body.Checks)
	}
}

func TestWebsocketStreamsState(t *testing.T) {
	frames := make(chan world.State, 1)
	svc := NewService("127.0.0.1:0", frames)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?name=tester"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))

	hello, _ := protocol.Encode(protocol.MsgHello, protocol.Hello{V: 1, Name: "tester"})
	if err := c.WriteMessage(websocket.TextMessage, hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if env, err := protocol.DecodeEnvelope(msg); err != nil || env.T != protocol.MsgWelcome {
		t.Fatalf("first message = %s", msg)
	}

	s := world.NewState()
	s.Score = 42
	frames <- s
	_, msg, err = c.ReadMessage()
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil || env.T != protocol.MsgState {
		t.Fatalf("second message = %s", msg)
	}
	st, err := protocol.DecodePayload[protocol.State](env)
	if err != nil || st.Score != 42 {
		t.Fatalf("state = %+v, %v", st, err)
	}
}

func TestRunBindFailure(t *testing.T) {
	ln := httptest.NewServer(http.NotFoundHandler())
	defer ln.Close()
	svc := NewService(strings.TrimPrefix(ln.URL, "http://"), nil)
	if err := svc.Run(context.Background()); errors.Cause(err) != world.ErrResourceUnavailable {
		t.Fatalf("err = %v, want ErrResourceUnavailable", err)
	}
}
