package world

import (
	"math"
	"testing"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()
	if s.Phase != Waiting {
		t.Fatalf("phase = %v, want waiting", s.Phase)
	}
	if s.Cell() != (Cell{X: SpawnX, Y: SpawnY}) {
		t.Fatalf("spawn cell = %+v", s.Cell())
	}
	if s.Remote.Valid {
		t.Fatalf("remote should start unknown")
	}
	if s.Obstacles.ActiveCount() != 0 || s.Targets.ActiveCount() != 0 {
		t.Fatalf("expected empty tables")
	}
}

func TestCellRounds(t *testing.T) {
	got := CellOf(Vec{X: 4.6, Y: 5.4})
	if got != (Cell{X: 5, Y: 5}) {
		t.Fatalf("CellOf = %+v, want {5 5}", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	s := NewState()
	s.Phase = Running
	s.Pos = Vec{X: 9, Y: 7}
	s.Force = Vec{X: 3, Y: -2}
	s.Score = 12
	s.Stats = Stats{HitObstacles: 2, HitTargets: 3, Distance: 40, Elapsed: 10}
	s.Obstacles.Place(0, Cell{X: 3, Y: 3})
	s.Targets.Place(4, Cell{X: 6, Y: 6})

	s.Reset()
	once := s
	s.Reset()

	for _, st := range []State{once, s} {
		if st.Phase != Waiting || st.Score != 0 || st.Stats != (Stats{}) {
			t.Fatalf("reset left phase=%v score=%f stats=%+v", st.Phase, st.Score, st.Stats)
		}
		if st.Cell() != (Cell{X: SpawnX, Y: SpawnY}) {
			t.Fatalf("reset position = %+v", st.Pos)
		}
		if st.Obstacles.ActiveCount() != 0 || st.Targets.ActiveCount() != 0 {
			t.Fatalf("reset left active entries")
		}
	}
	if s.Force != (Vec{X: 3, Y: -2}) {
		t.Fatalf("reset touched the force accumulator: %+v", s.Force)
	}
	once.Epoch = s.Epoch
	if once != s {
		t.Fatalf("second reset changed more than the epoch")
	}
}

func TestResetAfterQuitIsIgnored(t *testing.T) {
	s := NewState()
	s.Shutdown(ReasonUserQuit)
	s.Reset()
	if s.Phase != Quit {
		t.Fatalf("quit must be terminal, got %v", s.Phase)
	}
}

func TestShutdownKeepsFirstReason(t *testing.T) {
	s := NewState()
	s.Shutdown(ReasonPeerLost)
	s.Shutdown(ReasonSignal)
	if s.Reason != ReasonPeerLost {
		t.Fatalf("reason = %v, want peer lost", s.Reason)
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		ok       bool
	}{
		{Waiting, Running, true},
		{Running, MapView, true},
		{MapView, Running, true},
		{Waiting, MapView, false},
		{Running, Waiting, true},
		{Waiting, Waiting, true},
		{Running, Quit, true},
		{MapView, Quit, true},
		{Quit, Running, false},
		{Quit, Waiting, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Fatalf("CanTransition(%v, %v) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestSlotsDeactivateStaysInactive(t *testing.T) {
	var s Slots
	s.Place(1, Cell{X: 5, Y: 5})
	if s.Find(Cell{X: 5, Y: 5}) != 1 {
		t.Fatalf("expected slot 1 to be found")
	}
	s.Deactivate(1)
	if s.Find(Cell{X: 5, Y: 5}) != -1 || s[1].Active {
		t.Fatalf("deactivated slot still visible")
	}
	s.Place(MaxObjects, Cell{X: 1, Y: 1})
	if s.ActiveCount() != 0 {
		t.Fatalf("out of range place must be ignored")
	}
}

func TestSetCountsClamps(t *testing.T) {
	s := NewState()
	s.SetCounts(MaxObjects+5, -1)
	if s.NumObstacles != MaxObjects || s.NumTargets != 0 {
		t.Fatalf("counts = %d/%d", s.NumObstacles, s.NumTargets)
	}
}

func TestScoreFormula(t *testing.T) {
	st := Stats{HitTargets: 2, HitObstacles: 3, Elapsed: 20, Distance: 15}
	want := 2*30.0 - 3*5.0 - 20*0.05 - 15*0.1
	if got := Score(st); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score = %f, want %f", got, want)
	}
	if Score(Stats{}) != 0 {
		t.Fatalf("empty stats must score 0")
	}
}
