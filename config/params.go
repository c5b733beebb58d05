package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"drone/world"
)

var ErrConfigParse = errors.New("config: parse error")

// ConfigParseError reports a params document that was unreadable or only
// partly applied. Keys lists the entries that were missing or invalid.
type ConfigParseError struct {
	Path string
	Keys []string
	Err  error
}

func (e *ConfigParseError) Error() string {
	msg := "config: " + e.Path
	if len(e.Keys) > 0 {
		msg += ": bad or missing keys " + strings.Join(e.Keys, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigParseError) Cause() error  { return ErrConfigParse }
func (e *ConfigParseError) Unwrap() error { return ErrConfigParse }

// Params is what the JSON document configures.
type Params struct {
	Physics      world.Params
	NumObstacles int
	NumTargets   int
}

func DefaultParams() Params {
	return Params{Physics: world.DefaultParams}
}

// Apply copies the params into the blackboard, clamping counts.
func (p Params) Apply(s *world.State) {
	s.Params = p.Physics
	s.SetCounts(p.NumObstacles, p.NumTargets)
}

type field struct {
	key   string
	set   func(float64)
	count bool
}

// LoadParams updates p from the JSON file at path. Keys that are missing
// or of the wrong type keep their prior value and are reported in a
// *ConfigParseError. An unreadable or malformed document changes nothing.
func LoadParams(path string, p *Params) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return &ConfigParseError{Path: path, Err: err}
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return &ConfigParseError{Path: path, Err: err}
	}

	fields := []field{
		{"num_obstacles", func(v float64) { p.NumObstacles = int(v) }, true},
		{"num_targets", func(v float64) { p.NumTargets = int(v) }, true},
		{"mass", func(v float64) { p.Physics.Mass = v }, false},
		{"visc_damp_coef", func(v float64) { p.Physics.ViscDamp = v }, false},
		{"obst_repl_coef", func(v float64) { p.Physics.ObstRepl = v }, false},
		{"radius", func(v float64) { p.Physics.Radius = v }, false},
	}

	var bad []string
	for _, f := range fields {
		raw, ok := doc[f.key]
		if !ok {
			bad = append(bad, f.key)
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			bad = append(bad, f.key)
			continue
		}
		if f.count {
			v = float64(clamp(int(v), 0, world.MaxObjects))
		}
		f.set(v)
	}
	if len(bad) > 0 {
		return &ConfigParseError{Path: path, Keys: bad}
	}
	return nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (p Params) String() string {
	return fmt.Sprintf("obstacles=%d targets=%d mass=%g damp=%g repl=%g radius=%g",
		p.NumObstacles, p.NumTargets, p.Physics.Mass, p.Physics.ViscDamp, p.Physics.ObstRepl, p.Physics.Radius)
}
