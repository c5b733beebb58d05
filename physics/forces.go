package physics

import (
	"gonum.org/v1/gonum/spatial/r2"

	"drone/world"
)

func vec(v world.Vec) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

func cellVec(c world.Cell) r2.Vec {
	return r2.Vec{X: float64(c.X), Y: float64(c.Y)}
}

// inField reports whether an object cell can exert force at all.
func inField(c world.Cell, b world.Bounds) bool {
	return c.X >= 1 && c.Y >= 1 && c.X < b.Width && c.Y < b.Height
}

// Repulsion sums the obstacle and wall potentials acting on the drone,
// clamped to ±MaxRepulsion per axis.
func Repulsion(s *world.State) r2.Vec {
	var f r2.Vec
	pos := vec(s.Pos)
	k := s.Params.ObstRepl
	radius := s.Params.Radius

	for _, sl := range s.Obstacles {
		if !sl.Active || !inField(sl.Cell, s.Bounds) {
			continue
		}
		d := r2.Sub(cellVec(sl.Cell), pos)
		dist := r2.Norm(d)
		if dist <= 0 || dist >= radius {
			continue
		}
		mag := k * ObstacleGain * (1/dist - 1/radius) / (dist*dist + Epsilon)
		f = r2.Sub(f, r2.Scale(mag/(dist+Epsilon), d))
	}

	w := float64(s.Bounds.Width)
	h := float64(s.Bounds.Height)
	f.X += wall(k, pos.X, radius)
	f.X -= wall(k, w-pos.X, radius)
	f.Y += wall(k, pos.Y, radius)
	f.Y -= wall(k, h-pos.Y, radius)

	f.X = clamp(f.X, -MaxRepulsion, MaxRepulsion)
	f.Y = clamp(f.Y, -MaxRepulsion, MaxRepulsion)
	return f
}

// wall is the push away from a wall at distance dw.
func wall(k, dw, radius float64) float64 {
	if dw >= radius {
		return 0
	}
	return k * (1/(dw+Epsilon) - 1/radius) / (dw*dw + Epsilon)
}

// Attraction pulls the drone toward every active target in range.
func Attraction(s *world.State) r2.Vec {
	var f r2.Vec
	pos := vec(s.Pos)
	k := s.Params.ObstRepl
	radius := s.Params.Radius

	for _, sl := range s.Targets {
		if !sl.Active || !inField(sl.Cell, s.Bounds) {
			continue
		}
		d := r2.Sub(cellVec(sl.Cell), pos)
		dist := r2.Norm(d)
		if dist <= 0 || dist >= radius {
			continue
		}
		mag := k * AttractionGain * dist
		f = r2.Add(f, r2.Scale(mag/(dist+Epsilon), d))
	}
	return f
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
