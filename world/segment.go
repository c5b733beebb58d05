package world

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrResourceUnavailable is returned when a segment or its lock cannot be opened.
var ErrResourceUnavailable = errors.New("shared resource unavailable")

// Segment is the fixed-size region holding one State plus the lock guarding it.
// Load and Save must only be called between Lock and Unlock.
type Segment interface {
	Lock() error
	Unlock() error
	Load(*State) error
	Save(*State) error
	Close() error
}

type memorySegment struct {
	mu    sync.Mutex
	state State
}

// NewMemorySegment returns an in-process segment. The lock starts unlocked.
func NewMemorySegment() Segment {
	return &memorySegment{}
}

func (m *memorySegment) Lock() error {
	m.mu.Lock()
	return nil
}

func (m *memorySegment) Unlock() error {
	m.mu.Unlock()
	return nil
}

func (m *memorySegment) Load(s *State) error {
	*s = m.state
	return nil
}

func (m *memorySegment) Save(s *State) error {
	m.state = *s
	return nil
}

func (m *memorySegment) Close() error {
	return nil
}
