//go:build !unix

package world

import "github.com/pkg/errors"

const DefaultShmDir = ""

func CreateSharedSegment(dir, name, lockName string) (Segment, error) {
	return nil, errors.Wrap(ErrResourceUnavailable, "shared segments need a unix host")
}

func OpenSharedSegment(dir, name, lockName string) (Segment, error) {
	return CreateSharedSegment(dir, name, lockName)
}
