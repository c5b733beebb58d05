package spawner

import (
	"context"
	"log"
	"math/rand"
	"time"

	"drone/liveness"
	"drone/world"
)

// Poll is how often the spawner looks for a new round.
const Poll = 200 * time.Millisecond

// Spawner lays out obstacles and targets once per round in local mode.
type Spawner struct {
	store  *world.Store
	heart  liveness.Heart
	rng    *rand.Rand
	seeded bool
	epoch  uint32
}

func NewSpawner(store *world.Store, heart liveness.Heart, seed int64) *Spawner {
	return &Spawner{store: store, heart: heart, rng: rand.New(rand.NewSource(seed))}
}

// Tick seeds the board if a new round is running. It reports whether it did.
func (sp *Spawner) Tick() bool {
	placed := false
	sp.store.Update(func(s *world.State) {
		if s.Phase != world.Running {
			return
		}
		if sp.seeded && sp.epoch == s.Epoch {
			return
		}
		sp.place(s)
		sp.seeded = true
		sp.epoch = s.Epoch
		placed = true
	})
	return placed
}

func (sp *Spawner) place(s *world.State) {
	drone := s.Cell()
	var free []world.Cell
	for y := 1; y <= s.Bounds.Height-2; y++ {
		for x := 1; x <= s.Bounds.Width-2; x++ {
			c := world.Cell{X: x, Y: y}
			if c != drone {
				free = append(free, c)
			}
		}
	}

	// Partial shuffle: the first n entries become distinct picks.
	n := s.NumObstacles + s.NumTargets
	if n > len(free) {
		n = len(free)
	}
	for i := 0; i < n; i++ {
		j := i + sp.rng.Intn(len(free)-i)
		free[i], free[j] = free[j], free[i]
	}

	s.Obstacles.Clear()
	s.Targets.Clear()
	k := 0
	for i := 0; i < s.NumObstacles && k < n; i++ {
		s.Obstacles.Place(i, free[k])
		k++
	}
	for i := 0; i < s.NumTargets && k < n; i++ {
		s.Targets.Place(i, free[k])
		k++
	}
}

func (sp *Spawner) Run(ctx context.Context) error {
	ticker := time.NewTicker(Poll)
	defer ticker.Stop()
	lastBeat := time.Now()
	sp.heart.Beat()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if sp.store.Quitting() {
				return nil
			}
			if sp.Tick() {
				log.Printf("spawner: new round laid out (epoch %d)", sp.epoch)
			}
			if time.Since(lastBeat) >= liveness.Interval {
				sp.heart.Beat()
				lastBeat = time.Now()
			}
		}
	}
}
