package liveness

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Interval is how often each worker is expected to beat.
const Interval = 3 * time.Second

type Role string

const (
	Dynamics   Role = "dynamics"
	Keyboard   Role = "keyboard"
	Window     Role = "window"
	Peer       Role = "peer"
	Spawner    Role = "spawner"
	Supervisor Role = "supervisor"
)

// Heart is the write-only end of one role's heartbeat channel.
// The zero Heart drops every beat.
type Heart struct {
	role Role
	ch   chan<- struct{}
}

// Beat never blocks; a beat already pending makes this one redundant.
func (h Heart) Beat() {
	if h.ch == nil {
		return
	}
	select {
	case h.ch <- struct{}{}:
	default:
	}
}

func (h Heart) Role() Role {
	return h.role
}

// Monitor owns one channel per role and remembers when each last beat.
type Monitor struct {
	mu       sync.Mutex
	channels map[Role]chan struct{}
	lastSeen map[Role]time.Time
	now      func() time.Time
}

func NewMonitor(roles ...Role) *Monitor {
	m := &Monitor{
		channels: make(map[Role]chan struct{}, len(roles)),
		lastSeen: make(map[Role]time.Time, len(roles)),
		now:      time.Now,
	}
	start := m.now()
	for _, r := range roles {
		m.channels[r] = make(chan struct{}, 1)
		m.lastSeen[r] = start
	}
	return m
}

// Heart returns the writer for r, or a no-op Heart for an unknown role.
func (m *Monitor) Heart(r Role) Heart {
	if m == nil {
		return Heart{role: r}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[r]
	if !ok {
		return Heart{role: r}
	}
	return Heart{role: r, ch: ch}
}

// Run drains every channel until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	roles := make([]Role, 0, len(m.channels))
	chans := make([]chan struct{}, 0, len(m.channels))
	for r, ch := range m.channels {
		roles = append(roles, r)
		chans = append(chans, ch)
	}
	m.mu.Unlock()

	poll := time.NewTicker(Interval / 10)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			for i, ch := range chans {
				select {
				case <-ch:
					m.mark(roles[i])
				default:
				}
			}
		}
	}
}

func (m *Monitor) mark(r Role) {
	m.mu.Lock()
	m.lastSeen[r] = m.now()
	m.mu.Unlock()
}

// Stale lists the roles that have not beaten within maxAge, sorted.
func (m *Monitor) Stale(maxAge time.Duration) []Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var out []Role
	for r, seen := range m.lastSeen {
		if now.Sub(seen) > maxAge {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Monitor) LastSeen(r Role) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lastSeen[r]
	return t, ok
}
