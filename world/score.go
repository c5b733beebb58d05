package world

const (
	PointsPerTarget    = 30.0
	PenaltyPerHit      = 5.0
	PenaltyPerSecond   = 0.05
	PenaltyPerDistance = 0.1
)

// Score derives the round score from the accumulated stats.
func Score(st Stats) float64 {
	return float64(st.HitTargets)*PointsPerTarget -
		float64(st.HitObstacles)*PenaltyPerHit -
		st.Elapsed*PenaltyPerSecond -
		st.Distance*PenaltyPerDistance
}
