package world

import "math"

// Shared blackboard truth. Only ever touched through a Store.

const (
	MaxObjects = 20

	SpawnX = 2
	SpawnY = 2

	DefaultWidth  = 20
	DefaultHeight = 20
)

type Vec struct {
	X, Y float64
}

// Cell is an integer grid position.
type Cell struct {
	X, Y int
}

type Params struct {
	Mass     float64
	ViscDamp float64
	ObstRepl float64
	Radius   float64
}

var DefaultParams = Params{
	Mass:     1,
	ViscDamp: 1,
	ObstRepl: 1,
	Radius:   5,
}

type Bounds struct {
	Width, Height int
}

// Contains reports whether c lies inside the playable area, walls excluded.
func (b Bounds) Contains(c Cell) bool {
	return c.X >= 1 && c.Y >= 1 && c.X <= b.Width-2 && c.Y <= b.Height-2
}

type Stats struct {
	HitObstacles int
	HitTargets   int
	Distance     float64
	Elapsed      float64 // seconds
}

// Remote is the last known peer drone location.
type Remote struct {
	Cell  Cell
	Valid bool
}

type State struct {
	Pos   Vec
	Force Vec

	Params Params
	Bounds Bounds

	Obstacles    Slots
	Targets      Slots
	NumObstacles int
	NumTargets   int

	Stats Stats
	Score float64

	Phase  Phase
	Reason Reason
	Epoch  uint32

	Remote Remote

	SizeLocked     bool
	RendererReady  bool
	SizeNegotiated bool
}

// NewState returns the model as the supervisor seeds it at startup.
func NewState() State {
	return State{
		Pos:    Vec{X: SpawnX, Y: SpawnY},
		Params: DefaultParams,
		Bounds: Bounds{Width: DefaultWidth, Height: DefaultHeight},
		Phase:  Waiting,
	}
}

// Cell rounds the continuous position to the grid cell it occupies.
func (s *State) Cell() Cell {
	return CellOf(s.Pos)
}

func CellOf(v Vec) Cell {
	return Cell{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

// Reset starts a new round. The force accumulator is left alone.
func (s *State) Reset() {
	if s.Phase == Quit {
		return
	}
	s.Phase = Waiting
	s.Score = 0
	s.Stats = Stats{}
	s.Pos = Vec{X: SpawnX, Y: SpawnY}
	s.Obstacles.Clear()
	s.Targets.Clear()
	s.Epoch++
}

// Shutdown moves the run to Quit. The first recorded reason wins.
func (s *State) Shutdown(r Reason) {
	s.Phase = Quit
	if s.Reason == ReasonNone {
		s.Reason = r
	}
}

// SetCounts applies configured object counts, clamped to capacity.
func (s *State) SetCounts(obstacles, targets int) {
	s.NumObstacles = clampCount(obstacles)
	s.NumTargets = clampCount(targets)
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxObjects {
		return MaxObjects
	}
	return n
}
