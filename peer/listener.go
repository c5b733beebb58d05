package peer

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"drone/protocol"
	"drone/world"
)

func (l *Link) listen(ctx context.Context, c protocol.Codec) error {
	if err := c.Send(protocol.OK()); err != nil {
		return err
	}
	if _, _, err := recvLenient(c); err != nil {
		return errors.Wrap(err, "await ok ack")
	}

	var b world.Bounds
	l.store.View(func(s world.State) { b = s.Bounds })
	if err := c.Send(protocol.Size(b.Width, b.Height)); err != nil {
		return err
	}
	if _, _, err := recvLenient(c); err != nil {
		return errors.Wrap(err, "await size ack")
	}
	l.negotiated()

	for {
		var (
			phase world.Phase
			h     int
			cell  world.Cell
		)
		l.store.View(func(s world.State) {
			phase = s.Phase
			h = s.Bounds.Height
			cell = s.Cell()
		})

		if phase == world.Quit {
			if err := c.Send(protocol.QuitMsg()); err != nil {
				return err
			}
			if _, _, err := recvLenient(c); err != nil {
				return errors.Wrap(err, "await quit ack")
			}
			return nil
		}

		if err := l.sendDrone(c, cell, h); err != nil {
			return err
		}
		if err := l.exchangeObstacle(c, h); err != nil {
			return err
		}

		l.beat(false)
		if !l.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (l *Link) sendDrone(c protocol.Codec, cell world.Cell, h int) error {
	if err := c.Send(protocol.Drone()); err != nil {
		return err
	}
	v := protocol.ToVirtual(cell, h)
	if err := c.Send(protocol.Pos(v.X, v.Y)); err != nil {
		return err
	}
	_, _, err := recvLenient(c)
	return errors.Wrap(err, "await drone ack")
}

// exchangeObstacle pulls the peer drone and mirrors it as obstacle slot 0.
func (l *Link) exchangeObstacle(c protocol.Codec, h int) error {
	if err := c.Send(protocol.Obst()); err != nil {
		return err
	}
	m, ok, err := recvLenient(c)
	if err != nil {
		return errors.Wrap(err, "await peer position")
	}
	if ok && m.Kind == protocol.KindPos {
		local := protocol.FromVirtual(world.Cell{X: m.X, Y: m.Y}, h)
		l.store.Update(func(s *world.State) {
			for i := 1; i < world.MaxObjects; i++ {
				s.Obstacles.Deactivate(i)
			}
			s.Obstacles.Place(0, local)
			s.NumObstacles = 1
		})
	} else {
		log.Printf("peer %s: skipping bad position reply %q", l.role, m.Line())
	}
	return c.Send(protocol.Ack(protocol.AckPos))
}
