package protocol

import "drone/world"

type Welcome struct {
	ClientID string `json:"clientId"`
	RateHz   int    `json:"rateHz"`
}

// State is one viewer frame: a read-only copy of the blackboard.
type State struct {
	Seq     uint64     `json:"seq"`
	Phase   string     `json:"phase"`
	Reason  string     `json:"reason,omitempty"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Drone   Point      `json:"drone"`
	Remote  *Point     `json:"remote,omitempty"`
	Obst    []Point    `json:"obstacles"`
	Targets []Point    `json:"targets"`
	Stats   StatsFrame `json:"stats"`
	Score   float64    `json:"score"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type StatsFrame struct {
	HitObstacles int     `json:"hitObstacles"`
	HitTargets   int     `json:"hitTargets"`
	Distance     float64 `json:"distance"`
	Elapsed      float64 `json:"elapsed"`
}

// Frame builds a viewer frame from a snapshot.
func Frame(seq uint64, s world.State) State {
	f := State{
		Seq:     seq,
		Phase:   s.Phase.String(),
		Width:   s.Bounds.Width,
		Height:  s.Bounds.Height,
		Drone:   point(s.Cell()),
		Obst:    active(&s.Obstacles),
		Targets: active(&s.Targets),
		Stats: StatsFrame{
			HitObstacles: s.Stats.HitObstacles,
			HitTargets:   s.Stats.HitTargets,
			Distance:     s.Stats.Distance,
			Elapsed:      s.Stats.Elapsed,
		},
		Score: s.Score,
	}
	if s.Reason != world.ReasonNone {
		f.Reason = s.Reason.String()
	}
	if s.Remote.Valid {
		p := point(s.Remote.Cell)
		f.Remote = &p
	}
	return f
}

func point(c world.Cell) Point {
	return Point{X: c.X, Y: c.Y}
}

func active(slots *world.Slots) []Point {
	out := make([]Point, 0, world.MaxObjects)
	for _, sl := range slots {
		if sl.Active {
			out = append(out, point(sl.Cell))
		}
	}
	return out
}
