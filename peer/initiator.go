package peer

import (
	"log"

	"github.com/pkg/errors"

	"drone/protocol"
	"drone/world"
)

func (l *Link) initiate(c protocol.Codec) error {
	m, err := c.Recv()
	if err != nil {
		return errors.Wrap(err, "await ok")
	}
	if m.Kind != protocol.KindOK {
		return errors.Errorf("handshake: expected ok, got %q", m.Line())
	}
	if err := c.Send(protocol.Ack(protocol.AckOK)); err != nil {
		return err
	}

	m, err = c.Recv()
	if err != nil {
		return errors.Wrap(err, "await size")
	}
	if m.Kind != protocol.KindSize {
		return errors.Errorf("handshake: expected size, got %q", m.Line())
	}
	l.store.Update(func(s *world.State) {
		s.Bounds = world.Bounds{Width: m.X, Height: m.Y}
	})
	if err := c.Send(protocol.Ack(protocol.AckSize)); err != nil {
		return err
	}
	l.negotiated()

	for {
		m, ok, err := recvLenient(c)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("peer %s: ignoring malformed token %q", l.role, m.Line())
			continue
		}

		switch m.Kind {
		case protocol.KindQuit:
			if err := c.Send(protocol.Ack(protocol.AckQuit)); err != nil {
				return err
			}
			l.store.Shutdown(world.ReasonPeerQuit)
			log.Printf("peer %s: peer quit", l.role)
			return nil
		case protocol.KindDrone:
			if err := l.recvRemote(c); err != nil {
				return err
			}
		case protocol.KindObst:
			if err := l.replyPosition(c); err != nil {
				return err
			}
		default:
			log.Printf("peer %s: ignoring token %q", l.role, m.Line())
		}

		l.beat(false)
		if l.store.Quitting() {
			return nil
		}
	}
}

func (l *Link) recvRemote(c protocol.Codec) error {
	m, ok, err := recvLenient(c)
	if err != nil {
		return errors.Wrap(err, "await drone position")
	}
	if ok && m.Kind == protocol.KindPos {
		l.store.Update(func(s *world.State) {
			s.Remote = world.Remote{
				Cell:  protocol.FromVirtual(world.Cell{X: m.X, Y: m.Y}, s.Bounds.Height),
				Valid: true,
			}
		})
	} else {
		log.Printf("peer %s: skipping bad drone position %q", l.role, m.Line())
	}
	return c.Send(protocol.Ack(protocol.AckDrone))
}

func (l *Link) replyPosition(c protocol.Codec) error {
	var v world.Cell
	l.store.View(func(s world.State) {
		v = protocol.ToVirtual(s.Cell(), s.Bounds.Height)
	})
	if err := c.Send(protocol.Pos(v.X, v.Y)); err != nil {
		return err
	}
	_, _, err := recvLenient(c)
	return errors.Wrap(err, "await position ack")
}
