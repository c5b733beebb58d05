package world

import (
	"log"

	"github.com/pkg/errors"
)

// Store is the only way into the shared State. Every method is one critical
// section; callbacks must not block, sleep or call back into the Store.
type Store struct {
	name string
	seg  Segment
}

// NewStore wraps seg and writes init into it.
func NewStore(name string, seg Segment, init State) (*Store, error) {
	st := &Store{name: name, seg: seg}
	if err := st.do(func(s *State) { *s = init }, true); err != nil {
		return nil, err
	}
	return st, nil
}

// AttachStore wraps a segment that another process already initialized.
func AttachStore(name string, seg Segment) *Store {
	return &Store{name: name, seg: seg}
}

func (st *Store) Name() string {
	return st.name
}

// Update runs fn as one read-modify-write pass.
func (st *Store) Update(fn func(*State)) {
	if err := st.do(fn, true); err != nil {
		log.Printf("store %s: update: %v", st.name, err)
	}
}

// View runs fn on a consistent copy without writing back.
func (st *Store) View(fn func(State)) {
	err := st.do(func(s *State) { fn(*s) }, false)
	if err != nil {
		log.Printf("store %s: view: %v", st.name, err)
	}
}

func (st *Store) Snapshot() State {
	var out State
	st.View(func(s State) { out = s })
	return out
}

func (st *Store) Shutdown(r Reason) {
	st.Update(func(s *State) { s.Shutdown(r) })
}

// Quitting reports whether the run has reached Quit.
func (st *Store) Quitting() bool {
	q := false
	st.View(func(s State) { q = s.Phase == Quit })
	return q
}

func (st *Store) Close() error {
	return st.seg.Close()
}

func (st *Store) do(fn func(*State), write bool) (err error) {
	if err := st.seg.Lock(); err != nil {
		return errors.Wrap(err, "acquire")
	}
	defer func() {
		if uerr := st.seg.Unlock(); uerr != nil && err == nil {
			err = errors.Wrap(uerr, "release")
		}
	}()

	var s State
	if err := st.seg.Load(&s); err != nil {
		return errors.Wrap(err, "load")
	}
	fn(&s)
	if !write {
		return nil
	}
	return errors.Wrap(st.seg.Save(&s), "save")
}
