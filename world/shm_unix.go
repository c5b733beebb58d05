//go:build unix

package world

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DefaultShmDir is where POSIX shared memory objects live on Linux.
const DefaultShmDir = "/dev/shm"

// sharedSegment is a memory-mapped file guarded by an flock on a sibling
// lock file. The mutex serializes goroutines of this process, flock
// serializes processes.
type sharedSegment struct {
	mu     sync.Mutex
	mem    []byte
	data   *os.File
	lock   *os.File
	remove []string
}

// CreateSharedSegment creates (or truncates) the named segment and lock.
// Both files are removed again on Close.
func CreateSharedSegment(dir, name, lockName string) (Segment, error) {
	seg, err := openShared(dir, name, lockName, true)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// OpenSharedSegment attaches to a segment created by another process.
func OpenSharedSegment(dir, name, lockName string) (Segment, error) {
	seg, err := openShared(dir, name, lockName, false)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func shmPath(dir, name string) string {
	return filepath.Join(dir, strings.TrimPrefix(name, "/"))
}

func openShared(dir, name, lockName string, create bool) (*sharedSegment, error) {
	if dir == "" {
		dir = DefaultShmDir
	}
	dataPath := shmPath(dir, name)
	lockPath := shmPath(dir, lockName)

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	data, err := os.OpenFile(dataPath, flags, 0o666)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceUnavailable, "segment %s: %v", dataPath, err)
	}
	if create {
		if err := data.Truncate(int64(SegmentSize)); err != nil {
			data.Close()
			return nil, errors.Wrapf(ErrResourceUnavailable, "truncate %s: %v", dataPath, err)
		}
	} else if fi, err := data.Stat(); err != nil || fi.Size() < int64(SegmentSize) {
		data.Close()
		return nil, errors.Wrapf(ErrResourceUnavailable, "segment %s is not initialized", dataPath)
	}
	mem, err := unix.Mmap(int(data.Fd()), 0, SegmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		data.Close()
		return nil, errors.Wrapf(ErrResourceUnavailable, "mmap %s: %v", dataPath, err)
	}
	lock, err := os.OpenFile(lockPath, flags, 0o666)
	if err != nil {
		unix.Munmap(mem)
		data.Close()
		return nil, errors.Wrapf(ErrResourceUnavailable, "lock %s: %v", lockPath, err)
	}

	seg := &sharedSegment{mem: mem, data: data, lock: lock}
	if create {
		seg.remove = []string{dataPath, lockPath}
	}
	return seg, nil
}

func (s *sharedSegment) Lock() error {
	s.mu.Lock()
	for {
		err := unix.Flock(int(s.lock.Fd()), unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			s.mu.Unlock()
			return errors.Wrap(err, "flock")
		}
		return nil
	}
}

func (s *sharedSegment) Unlock() error {
	defer s.mu.Unlock()
	return errors.Wrap(unix.Flock(int(s.lock.Fd()), unix.LOCK_UN), "funlock")
}

func (s *sharedSegment) Load(st *State) error {
	return decodeState(s.mem, st)
}

func (s *sharedSegment) Save(st *State) error {
	return encodeState(st, s.mem)
}

func (s *sharedSegment) Close() error {
	err := unix.Munmap(s.mem)
	s.data.Close()
	s.lock.Close()
	for _, p := range s.remove {
		os.Remove(p)
	}
	return errors.Wrap(err, "munmap")
}
