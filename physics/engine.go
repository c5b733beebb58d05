package physics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ttacon/chalk"

	"drone/liveness"
	"drone/world"
)

// Engine is the only writer of drone kinematics.
type Engine struct {
	store *world.Store
	heart liveness.Heart
	tick  time.Duration
	hist  History
}

func NewEngine(store *world.Store, heart liveness.Heart) *Engine {
	return &Engine{store: store, heart: heart, tick: TickRate}
}

// Tick runs one locked pass and reports whether the run has quit.
func (e *Engine) Tick() (Result, bool) {
	var res Result
	quit := false
	e.store.Update(func(s *world.State) {
		if s.Phase == world.Quit {
			quit = true
			return
		}
		res = Step(s, &e.hist, e.tick.Seconds())
	})
	return res, quit
}

// Run ticks at TickRate until the run quits or ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	log.Println("dynamics started")
	lastBeat := time.Now()
	e.heart.Beat()

	for {
		start := time.Now()
		res, quit := e.Tick()
		if quit {
			log.Println("dynamics stopping: quit")
			return nil
		}
		for _, c := range res.HitObstacles {
			fmt.Print(chalk.Yellow)
			log.Printf("drone hit an obstacle at (%d, %d)%s", c.X, c.Y, chalk.Reset)
		}
		for _, c := range res.HitTargets {
			fmt.Print(chalk.Green)
			log.Printf("drone got a target at (%d, %d)%s", c.X, c.Y, chalk.Reset)
		}

		if time.Since(lastBeat) >= liveness.Interval {
			e.heart.Beat()
			lastBeat = time.Now()
		}

		wait := e.tick - time.Since(start)
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
