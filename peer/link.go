package peer

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"drone/liveness"
	"drone/protocol"
	"drone/world"
)

// ErrSessionLost ends the local run. Sessions are never retried.
var ErrSessionLost = errors.New("peer: session lost")

type Role uint8

const (
	Listener Role = iota
	Initiator
)

func (r Role) String() string {
	if r == Listener {
		return "listener"
	}
	return "initiator"
}

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusNegotiated Status = "negotiated"
	StatusClosed     Status = "closed"
	StatusLost       Status = "lost"
)

// Link drives one peer session against the local Store.
type Link struct {
	store *world.Store
	role  Role
	wire  string
	heart liveness.Heart
	cycle time.Duration
	id    string

	mu       sync.Mutex
	status   Status
	lastBeat time.Time
}

func NewLink(store *world.Store, role Role, wire string, heart liveness.Heart) *Link {
	return &Link{
		store:  store,
		role:   role,
		wire:   wire,
		heart:  heart,
		cycle:  protocol.PeerCycle,
		id:     uuid.NewString(),
		status: StatusConnecting,
	}
}

func (l *Link) ID() string { return l.id }

func (l *Link) Role() Role { return l.role }

func (l *Link) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Link) setStatus(s Status) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
}

// Run owns conn until the session ends. A lost session shuts the run
// down with ReasonPeerLost and returns an error whose cause is
// ErrSessionLost. Cancelling ctx closes conn and returns nil.
func (l *Link) Run(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	codec, err := protocol.NewCodec(l.wire, conn)
	if err != nil {
		return err
	}
	log.Printf("peer %s: session %s with %s (%s wire)", l.role, l.id, conn.RemoteAddr(), l.wire)
	l.beat(true)

	if l.role == Listener {
		err = l.listen(ctx, codec)
	} else {
		err = l.initiate(codec)
	}
	if err == nil {
		l.setStatus(StatusClosed)
		log.Printf("peer %s: session %s closed", l.role, l.id)
		return nil
	}
	if ctx.Err() != nil {
		l.setStatus(StatusClosed)
		return nil
	}
	return l.lost(err)
}

func (l *Link) lost(err error) error {
	l.setStatus(StatusLost)
	l.store.Shutdown(world.ReasonPeerLost)
	fmt.Print(chalk.Red)
	log.Printf("peer %s: session %s lost: %v%s", l.role, l.id, err, chalk.Reset)
	return errors.Wrapf(ErrSessionLost, "%s %s: %v", l.role, l.id, err)
}

func (l *Link) negotiated() {
	l.store.Update(func(s *world.State) { s.SizeNegotiated = true })
	l.setStatus(StatusNegotiated)
	fmt.Print(chalk.Green)
	log.Printf("peer %s: size negotiated%s", l.role, chalk.Reset)
}

func (l *Link) beat(force bool) {
	if force || time.Since(l.lastBeat) >= liveness.Interval {
		l.heart.Beat()
		l.lastBeat = time.Now()
	}
}

// recvLenient only fails on stream errors.
func recvLenient(c protocol.Codec) (protocol.Message, bool, error) {
	m, err := c.Recv()
	if err != nil {
		if errors.Cause(err) == protocol.ErrMalformed {
			return m, false, nil
		}
		return m, false, err
	}
	return m, true, nil
}

// sleep waits one exchange cycle; false means ctx ended.
func (l *Link) sleep(ctx context.Context) bool {
	t := time.NewTimer(l.cycle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
