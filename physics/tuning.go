package physics

import "time"

const (
	TickRate = 50 * time.Millisecond
	DT       = 0.05 // seconds, TickRate as a float

	Epsilon = 1e-6

	ObstacleGain   = 3.0  // repulsion multiplier for obstacles, walls use 1
	AttractionGain = 0.05 // attraction per unit distance
	MaxRepulsion   = 100.0
)
