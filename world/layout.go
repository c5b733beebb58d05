package world

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Fixed little-endian image of State as it sits in a shared segment.

type slotImage struct {
	X, Y   int32
	Active uint8
	_      [3]byte
}

type stateImage struct {
	PosX, PosY     float64
	ForceX, ForceY float64

	Mass, ViscDamp, ObstRepl, Radius float64

	Width, Height int32

	Obstacles    [MaxObjects]slotImage
	Targets      [MaxObjects]slotImage
	NumObstacles int32
	NumTargets   int32

	HitObstacles, HitTargets int32
	Distance, Elapsed        float64
	Score                    float64

	Phase, Reason uint8
	_             [2]byte
	Epoch         uint32

	RemoteX, RemoteY int32
	RemoteValid      uint8

	SizeLocked, RendererReady, SizeNegotiated uint8
}

// SegmentSize is the exact byte size of a shared segment.
var SegmentSize = binary.Size(stateImage{})

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func slotsImage(s Slots) (out [MaxObjects]slotImage) {
	for i, sl := range s {
		out[i] = slotImage{X: int32(sl.Cell.X), Y: int32(sl.Cell.Y), Active: b2u(sl.Active)}
	}
	return out
}

func slotsFrom(img [MaxObjects]slotImage) (out Slots) {
	for i, si := range img {
		if si.Active != 0 {
			out[i] = Slot{Cell: Cell{X: int(si.X), Y: int(si.Y)}, Active: true}
		}
	}
	return out
}

func encodeState(s *State, buf []byte) error {
	img := stateImage{
		PosX:         s.Pos.X,
		PosY:         s.Pos.Y,
		ForceX:       s.Force.X,
		ForceY:       s.Force.Y,
		Mass:         s.Params.Mass,
		ViscDamp:     s.Params.ViscDamp,
		ObstRepl:     s.Params.ObstRepl,
		Radius:       s.Params.Radius,
		Width:        int32(s.Bounds.Width),
		Height:       int32(s.Bounds.Height),
		Obstacles:    slotsImage(s.Obstacles),
		Targets:      slotsImage(s.Targets),
		NumObstacles: int32(s.NumObstacles),
		NumTargets:   int32(s.NumTargets),
		HitObstacles: int32(s.Stats.HitObstacles),
		HitTargets:   int32(s.Stats.HitTargets),
		Distance:     s.Stats.Distance,
		Elapsed:      s.Stats.Elapsed,
		Score:        s.Score,
		Phase:        uint8(s.Phase),
		Reason:       uint8(s.Reason),
		Epoch:        s.Epoch,
		RemoteX:      int32(s.Remote.Cell.X),
		RemoteY:      int32(s.Remote.Cell.Y),
		RemoteValid:  b2u(s.Remote.Valid),

		SizeLocked:     b2u(s.SizeLocked),
		RendererReady:  b2u(s.RendererReady),
		SizeNegotiated: b2u(s.SizeNegotiated),
	}
	var w bytes.Buffer
	w.Grow(SegmentSize)
	if err := binary.Write(&w, binary.LittleEndian, &img); err != nil {
		return errors.Wrap(err, "encode state")
	}
	if len(buf) < w.Len() {
		return errors.Errorf("segment too small: %d < %d", len(buf), w.Len())
	}
	copy(buf, w.Bytes())
	return nil
}

func decodeState(buf []byte, s *State) error {
	var img stateImage
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &img); err != nil {
		return errors.Wrap(err, "decode state")
	}
	*s = State{
		Pos:          Vec{X: img.PosX, Y: img.PosY},
		Force:        Vec{X: img.ForceX, Y: img.ForceY},
		Params:       Params{Mass: img.Mass, ViscDamp: img.ViscDamp, ObstRepl: img.ObstRepl, Radius: img.Radius},
		Bounds:       Bounds{Width: int(img.Width), Height: int(img.Height)},
		Obstacles:    slotsFrom(img.Obstacles),
		Targets:      slotsFrom(img.Targets),
		NumObstacles: int(img.NumObstacles),
		NumTargets:   int(img.NumTargets),
		Stats: Stats{
			HitObstacles: int(img.HitObstacles),
			HitTargets:   int(img.HitTargets),
			Distance:     img.Distance,
			Elapsed:      img.Elapsed,
		},
		Score:  img.Score,
		Phase:  Phase(img.Phase),
		Reason: Reason(img.Reason),
		Epoch:  img.Epoch,
		Remote: Remote{Cell: Cell{X: int(img.RemoteX), Y: int(img.RemoteY)}, Valid: img.RemoteValid != 0},

		SizeLocked:     img.SizeLocked != 0,
		RendererReady:  img.RendererReady != 0,
		SizeNegotiated: img.SizeNegotiated != 0,
	}
	return nil
}
