package world

// Phase values match the integer encoding used in the shared segment.
type Phase uint8

const (
	Waiting Phase = 0
	Running Phase = 1
	Quit    Phase = 2
	MapView Phase = 3
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Quit:
		return "quit"
	case MapView:
		return "map"
	}
	return "unknown"
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
// Quit is terminal. Waiting is reachable from every live phase (reset).
func CanTransition(from, to Phase) bool {
	if from == Quit {
		return false
	}
	switch to {
	case Quit, Waiting:
		return true
	case Running:
		return from == Waiting || from == MapView
	case MapView:
		return from == Running
	}
	return false
}

// Transition applies to if the edge is legal.
func (s *State) Transition(to Phase) bool {
	if !CanTransition(s.Phase, to) {
		return false
	}
	s.Phase = to
	return true
}

// Reason records why the run is shutting down.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonUserQuit
	ReasonPeerQuit
	ReasonPeerLost
	ReasonSignal
	ReasonWorkerExit
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUserQuit:
		return "user quit"
	case ReasonPeerQuit:
		return "peer quit"
	case ReasonPeerLost:
		return "peer lost"
	case ReasonSignal:
		return "signal"
	case ReasonWorkerExit:
		return "worker exit"
	}
	return "unknown"
}
