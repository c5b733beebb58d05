package input

import (
	"context"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pkg/errors"

	"drone/liveness"
	"drone/world"
)

func newStore(t *testing.T) *world.Store {
	t.Helper()
	st, err := world.NewStore("input", world.NewMemorySegment(), world.NewState())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestDirectionalCommandsAccumulate(t *testing.T) {
	st := newStore(t)
	for _, c := range []Command{Right, Right, UpRight, Down} {
		Apply(st, c)
	}
	f := st.Snapshot().Force
	if f != (world.Vec{X: 3, Y: 0}) {
		t.Fatalf("force = %+v, want {3 0}", f)
	}

	Apply(st, Brake)
	if f := st.Snapshot().Force; f != (world.Vec{}) {
		t.Fatalf("brake left force %+v", f)
	}
}

func TestMetaCommandsKeepForce(t *testing.T) {
	st := newStore(t)
	Apply(st, Left)
	Apply(st, Start)
	Apply(st, ToggleMap)

	s := st.Snapshot()
	if s.Phase != world.MapView {
		t.Fatalf("phase = %v, want map", s.Phase)
	}
	if s.Force != (world.Vec{X: -1}) {
		t.Fatalf("meta commands changed force: %+v", s.Force)
	}

	Apply(st, ToggleMap)
	if st.Snapshot().Phase != world.Running {
		t.Fatalf("toggle should return to running")
	}
}

func TestStartOnlyFromWaiting(t *testing.T) {
	st := newStore(t)
	Apply(st, Start)
	Apply(st, ToggleMap)
	Apply(st, Start)
	if st.Snapshot().Phase != world.MapView {
		t.Fatalf("start must not leave map view")
	}
}

func TestResetCommand(t *testing.T) {
	st := newStore(t)
	st.Update(func(s *world.State) {
		s.Phase = world.Running
		s.Stats.HitTargets = 4
		s.Score = 120
		s.Pos = world.Vec{X: 9, Y: 9}
		s.Obstacles.Place(0, world.Cell{X: 4, Y: 4})
	})
	Apply(st, Reset)

	s := st.Snapshot()
	if s.Phase != world.Waiting || s.Score != 0 || s.Stats != (world.Stats{}) {
		t.Fatalf("reset left %+v", s)
	}
	if s.Cell() != (world.Cell{X: world.SpawnX, Y: world.SpawnY}) || s.Obstacles.ActiveCount() != 0 {
		t.Fatalf("reset did not restore the board")
	}
}

func TestQuitIsTerminal(t *testing.T) {
	st := newStore(t)
	Apply(st, QuitCmd)
	Apply(st, Start)
	Apply(st, Right)
	s := st.Snapshot()
	if s.Phase != world.Quit || s.Reason != world.ReasonUserQuit {
		t.Fatalf("phase=%v reason=%v", s.Phase, s.Reason)
	}
	if s.Force != (world.Vec{}) {
		t.Fatalf("commands applied after quit")
	}
}

func TestParseKey(t *testing.T) {
	cases := map[byte]Command{'w': Up, 'c': DownRight, 'x': Brake, 'i': Start, 'y': Reset, 'm': ToggleMap, 27: QuitCmd, 'k': None}
	for b, want := range cases {
		if got := ParseKey(b); got != want {
			t.Fatalf("ParseKey(%q) = %v, want %v", b, got, want)
		}
	}
}

func TestControllerRunStopsOnEsc(t *testing.T) {
	st := newStore(t)
	c := NewController(st, liveness.Heart{})

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), strings.NewReader("idd\x1bw")) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("controller did not stop on ESC")
	}
	s := st.Snapshot()
	if s.Phase != world.Quit || s.Force != (world.Vec{X: 2}) {
		t.Fatalf("phase=%v force=%+v", s.Phase, s.Force)
	}
}

func TestControllerRunReportsReadError(t *testing.T) {
	st := newStore(t)
	c := NewController(st, liveness.Heart{})
	boom := errors.New("tty gone")

	err := c.Run(context.Background(), iotest.ErrReader(boom))
	if errors.Cause(err) != boom {
		t.Fatalf("err = %v, want cause %v", err, boom)
	}
	if !strings.HasPrefix(err.Error(), "keyboard: read") {
		t.Fatalf("err = %q, want keyboard context", err)
	}
}
