package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"drone/world"
)

// History holds the two previous positions the integrator needs.
type History struct {
	Prev, Cur world.Vec
	seeded    bool
}

// Seed restarts the history at p with zero velocity.
func (h *History) Seed(p world.Vec) {
	h.Prev, h.Cur, h.seeded = p, p, true
}

// Result describes what one tick did, for logging outside the lock.
type Result struct {
	Moved        float64
	HitObstacles []world.Cell
	HitTargets   []world.Cell
}

// Integrate advances one axis of the damped second-order scheme.
func Integrate(prev, cur, force, mass, damp, dt float64) float64 {
	denom := mass + damp*dt
	if denom <= 0 {
		return cur
	}
	return (force*dt*dt - mass*(prev-2*cur) + damp*dt*cur) / denom
}

// Step runs one tick on s. The caller holds the Store lock.
func Step(s *world.State, h *History, dt float64) Result {
	var res Result
	if !h.seeded || h.Cur != s.Pos {
		// Someone else moved the drone (reset, startup).
		h.Seed(s.Pos)
	}

	force := vec(s.Force)
	if s.Phase == world.Running {
		force = r2.Add(force, Repulsion(s))
		force = r2.Add(force, Attraction(s))
	}

	old := s.Pos
	next := world.Vec{
		X: Integrate(h.Prev.X, h.Cur.X, force.X, s.Params.Mass, s.Params.ViscDamp, dt),
		Y: Integrate(h.Prev.Y, h.Cur.Y, force.Y, s.Params.Mass, s.Params.ViscDamp, dt),
	}

	var clampedX, clampedY bool
	next.X, clampedX = clampAxis(next.X, s.Bounds.Width)
	next.Y, clampedY = clampAxis(next.Y, s.Bounds.Height)

	h.Prev = h.Cur
	if clampedX {
		h.Prev.X = next.X
	}
	if clampedY {
		h.Prev.Y = next.Y
	}
	h.Cur = next
	s.Pos = next

	cell := s.Cell()
	for i, sl := range s.Obstacles {
		if sl.Active && sl.Cell == cell {
			s.Stats.HitObstacles++
			s.Obstacles.Deactivate(i)
			res.HitObstacles = append(res.HitObstacles, cell)
		}
	}
	for i, sl := range s.Targets {
		if sl.Active && sl.Cell == cell {
			s.Stats.HitTargets++
			s.Targets.Deactivate(i)
			res.HitTargets = append(res.HitTargets, cell)
		}
	}

	res.Moved = math.Hypot(next.X-old.X, next.Y-old.Y)
	s.Stats.Distance += res.Moved
	return res
}

// clampAxis keeps v inside [1, size-2].
func clampAxis(v float64, size int) (float64, bool) {
	lo := 1.0
	hi := float64(size - 2)
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
