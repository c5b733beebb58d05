package protocol

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec moves peer link messages over one byte stream. Recv errors whose
// cause is ErrMalformed leave the stream usable; anything else does not.
type Codec interface {
	Send(Message) error
	Recv() (Message, error)
}

const (
	WireText   = "text"
	WireBinary = "binary"
)

// NewCodec picks the codec named by wire.
func NewCodec(wire string, rw io.ReadWriter) (Codec, error) {
	switch wire {
	case "", WireText:
		return NewLineCodec(rw), nil
	case WireBinary:
		return NewFrameCodec(rw), nil
	}
	return nil, errors.Errorf("protocol: unknown wire format %q", wire)
}

// LineCodec speaks the newline-delimited text format.
type LineCodec struct {
	r *bufio.Reader
	w *bufio.Writer
}

func NewLineCodec(rw io.ReadWriter) *LineCodec {
	return &LineCodec{r: bufio.NewReader(rw), w: bufio.NewWriter(rw)}
}

func (c *LineCodec) Send(m Message) error {
	if _, err := c.w.WriteString(m.Line() + "\n"); err != nil {
		return errors.Wrapf(err, "send %s", m.Kind)
	}
	return errors.Wrapf(c.w.Flush(), "send %s", m.Kind)
}

func (c *LineCodec) Recv() (Message, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, errors.Wrap(err, "recv")
	}
	return ParseLine(line)
}

// MaxFrame bounds a single binary frame body.
const MaxFrame = 1 << 10

// FrameCodec writes a 4-byte big-endian length followed by a msgpack body.
type FrameCodec struct {
	r   *bufio.Reader
	w   *bufio.Writer
	hdr [4]byte
}

func NewFrameCodec(rw io.ReadWriter) *FrameCodec {
	return &FrameCodec{r: bufio.NewReader(rw), w: bufio.NewWriter(rw)}
}

func (c *FrameCodec) Send(m Message) error {
	body, err := msgpack.Marshal(&m)
	if err != nil {
		return errors.Wrapf(err, "encode %s", m.Kind)
	}
	binary.BigEndian.PutUint32(c.hdr[:], uint32(len(body)))
	if _, err := c.w.Write(c.hdr[:]); err != nil {
		return errors.Wrapf(err, "send %s", m.Kind)
	}
	if _, err := c.w.Write(body); err != nil {
		return errors.Wrapf(err, "send %s", m.Kind)
	}
	return errors.Wrapf(c.w.Flush(), "send %s", m.Kind)
}

func (c *FrameCodec) Recv() (Message, error) {
	if _, err := io.ReadFull(c.r, c.hdr[:]); err != nil {
		return Message{}, errors.Wrap(err, "recv header")
	}
	n := binary.BigEndian.Uint32(c.hdr[:])
	if n > MaxFrame {
		// The stream cannot be resynchronised past an oversized frame.
		return Message{}, errors.Errorf("recv: frame of %d bytes exceeds %d", n, MaxFrame)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return Message{}, errors.Wrap(err, "recv body")
	}
	var m Message
	if err := msgpack.Unmarshal(body, &m); err != nil {
		return Message{}, errors.Wrapf(ErrMalformed, "decode frame: %v", err)
	}
	if m.Kind > KindQuit {
		return Message{}, errors.Wrapf(ErrMalformed, "kind %d", m.Kind)
	}
	return m, m.Validate()
}
