package display

import (
	"context"
	"log"
	"sync"
	"time"

	"drone/liveness"
	"drone/world"
)

// Frame is the redraw period; each frame advances the run clock by it.
const Frame = 100 * time.Millisecond

// Renderer stands in for the window process: it owns the run clock,
// negotiates board size and publishes snapshots to subscribers.
type Renderer struct {
	store  *world.Store
	heart  liveness.Heart
	bounds world.Bounds
	frame  time.Duration

	mu     sync.Mutex
	subs   map[int]chan world.State
	nextID int
}

func NewRenderer(store *world.Store, heart liveness.Heart, bounds world.Bounds) *Renderer {
	return &Renderer{
		store:  store,
		heart:  heart,
		bounds: bounds,
		frame:  Frame,
		subs:   make(map[int]chan world.State),
	}
}

// Subscribe returns a channel holding the latest snapshot and a cancel
// func. Slow subscribers only ever miss intermediate frames.
func (r *Renderer) Subscribe() (<-chan world.State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan world.State, 1)
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

// Draw runs one frame and returns the snapshot it published.
func (r *Renderer) Draw() world.State {
	var snap world.State
	r.store.Update(func(s *world.State) {
		if !s.SizeLocked {
			s.Bounds = r.bounds
		}
		s.RendererReady = true
		if s.Phase != world.Quit {
			s.Stats.Elapsed += r.frame.Seconds()
		}
		snap = *s
	})
	r.publish(snap)
	return snap
}

func (r *Renderer) publish(s world.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Run draws every frame until the run quits or ctx ends.
func (r *Renderer) Run(ctx context.Context) error {
	log.Printf("window started %dx%d", r.bounds.Width, r.bounds.Height)
	ticker := time.NewTicker(r.frame)
	defer ticker.Stop()
	lastBeat := time.Now()
	r.heart.Beat()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if snap := r.Draw(); snap.Phase == world.Quit {
				log.Printf("window stopping: %s", snap.Reason)
				return nil
			}
			if time.Since(lastBeat) >= liveness.Interval {
				r.heart.Beat()
				lastBeat = time.Now()
			}
		}
	}
}
