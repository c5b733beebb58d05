package spawner

import (
	"testing"

	"drone/liveness"
	"drone/world"
)

func newStore(t *testing.T, obstacles, targets int) *world.Store {
	t.Helper()
	init := world.NewState()
	init.SetCounts(obstacles, targets)
	st, err := world.NewStore("spawner", world.NewMemorySegment(), init)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestSpawnOncePerEpoch(t *testing.T) {
	st := newStore(t, 5, 3)
	sp := NewSpawner(st, liveness.Heart{}, 1)

	if sp.Tick() {
		t.Fatalf("spawned while waiting")
	}
	st.Update(func(s *world.State) { s.Phase = world.Running })
	if !sp.Tick() {
		t.Fatalf("did not spawn on start")
	}
	s := st.Snapshot()
	if s.Obstacles.ActiveCount() != 5 || s.Targets.ActiveCount() != 3 {
		t.Fatalf("active = %d/%d", s.Obstacles.ActiveCount(), s.Targets.ActiveCount())
	}

	st.Update(func(s *world.State) { s.Obstacles.Deactivate(0) })
	if sp.Tick() {
		t.Fatalf("respawned inside the same epoch")
	}
	if st.Snapshot().Obstacles[0].Active {
		t.Fatalf("slot reactivated inside an epoch")
	}

	st.Update(func(s *world.State) {
		s.Reset()
		s.Phase = world.Running
	})
	if !sp.Tick() {
		t.Fatalf("did not spawn after reset")
	}
}

func TestSpawnDistinctInsideField(t *testing.T) {
	st := newStore(t, world.MaxObjects, world.MaxObjects)
	st.Update(func(s *world.State) {
		s.Phase = world.Running
		s.Bounds = world.Bounds{Width: 12, Height: 8}
	})
	NewSpawner(st, liveness.Heart{}, 42).Tick()

	s := st.Snapshot()
	seen := map[world.Cell]bool{s.Cell(): true}
	for _, tbl := range []*world.Slots{&s.Obstacles, &s.Targets} {
		for _, sl := range tbl {
			if !sl.Active {
				continue
			}
			if !s.Bounds.Contains(sl.Cell) {
				t.Fatalf("cell %+v outside %+v", sl.Cell, s.Bounds)
			}
			if seen[sl.Cell] {
				t.Fatalf("cell %+v used twice or on the drone", sl.Cell)
			}
			seen[sl.Cell] = true
		}
	}
	if len(seen) != 41 {
		t.Fatalf("placed %d cells, want 40", len(seen)-1)
	}
}

func TestSpawnSmallBoardCapsPlacements(t *testing.T) {
	st := newStore(t, 10, 10)
	st.Update(func(s *world.State) {
		s.Phase = world.Running
		s.Bounds = world.Bounds{Width: 5, Height: 5}
	})
	NewSpawner(st, liveness.Heart{}, 3).Tick()
	s := st.Snapshot()
	if got := s.Obstacles.ActiveCount() + s.Targets.ActiveCount(); got != 8 {
		t.Fatalf("placed %d, want the 8 free cells of a 3x3 field", got)
	}
}
