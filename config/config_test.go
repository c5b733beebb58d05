package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"drone/world"
)

func writeParams(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appsettings.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadParamsComplete(t *testing.T) {
	path := writeParams(t, `{"num_obstacles": 8, "num_targets": 4, "mass": 2,
		"visc_damp_coef": 0.5, "obst_repl_coef": 3, "radius": 6}`)
	p := DefaultParams()
	if err := LoadParams(path, &p); err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	want := Params{Physics: world.Params{Mass: 2, ViscDamp: 0.5, ObstRepl: 3, Radius: 6}, NumObstacles: 8, NumTargets: 4}
	if p != want {
		t.Fatalf("params = %+v, want %+v", p, want)
	}
}

func TestLoadParamsPartial(t *testing.T) {
	path := writeParams(t, `{"mass": 4, "radius": "wide", "num_targets": 99}`)
	p := DefaultParams()
	err := LoadParams(path, &p)

	var pe *ConfigParseError
	if !errors.As(err, &pe) || errors.Cause(err) != ErrConfigParse {
		t.Fatalf("err = %v, want ConfigParseError", err)
	}
	if p.Physics.Mass != 4 {
		t.Fatalf("valid key not applied: mass=%v", p.Physics.Mass)
	}
	if p.Physics.Radius != world.DefaultParams.Radius {
		t.Fatalf("wrong-typed radius overwrote prior value: %v", p.Physics.Radius)
	}
	if p.NumTargets != world.MaxObjects {
		t.Fatalf("targets = %d, want clamp to %d", p.NumTargets, world.MaxObjects)
	}
	if len(pe.Keys) != 4 {
		t.Fatalf("bad keys = %v", pe.Keys)
	}
}

func TestLoadParamsMalformedKeepsPrior(t *testing.T) {
	for _, body := range []string{`{"mass": 3`, `[1, 2]`} {
		path := writeParams(t, body)
		p := DefaultParams()
		p.NumObstacles = 5
		if err := LoadParams(path, &p); errors.Cause(err) != ErrConfigParse {
			t.Fatalf("%s: err = %v", body, err)
		}
		if p.NumObstacles != 5 || p.Physics != world.DefaultParams {
			t.Fatalf("%s: params changed: %+v", body, p)
		}
	}
}

func TestLoadParamsMissingFile(t *testing.T) {
	p := DefaultParams()
	err := LoadParams(filepath.Join(t.TempDir(), "nope.json"), &p)
	if errors.Cause(err) != ErrConfigParse {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyClampsCounts(t *testing.T) {
	s := world.NewState()
	Params{Physics: world.DefaultParams, NumObstacles: -3, NumTargets: 50}.Apply(&s)
	if s.NumObstacles != 0 || s.NumTargets != world.MaxObjects {
		t.Fatalf("counts = %d/%d", s.NumObstacles, s.NumTargets)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"BB_SHM_NAME", "BB_SEM_NAME", "BB_SHM_DIR", "DRONE_PARAMS", "DRONE_MODE", "DRONE_PEER_ADDR",
		"PEER_WIRE", "VIEWER_ADDR", "LOG_FILE", "DISPLAY_WIDTH", "DISPLAY_HEIGHT"} {
		t.Setenv(k, "")
	}
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Fatalf("settings = %+v, want defaults", s)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BB_SHM_NAME", "bb_test")
	t.Setenv("DRONE_MODE", ModeListen)
	t.Setenv("DISPLAY_WIDTH", "90")
	t.Setenv("PEER_WIRE", "binary")
	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ShmName != "bb_test" || s.Mode != ModeListen || s.DisplayWidth != 90 || s.Wire != "binary" {
		t.Fatalf("settings = %+v", s)
	}
	if !s.Networked() {
		t.Fatalf("listen mode should be networked")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DISPLAY_WIDTH", "wide")
	if _, err := Load(); err == nil {
		t.Fatalf("non-numeric width accepted")
	}
	t.Setenv("DISPLAY_WIDTH", "")
	t.Setenv("DRONE_MODE", "mesh")
	if _, err := Load(); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}

func TestGetEnvVariable(t *testing.T) {
	if _, err := GetEnvVariable(""); err == nil {
		t.Fatalf("empty name accepted")
	}
	t.Setenv("DRONE_TEST_VAR", "x")
	if v, err := GetEnvVariable("DRONE_TEST_VAR"); err != nil || v != "x" {
		t.Fatalf("got %q, %v", v, err)
	}
}
