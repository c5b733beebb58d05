package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/ttacon/chalk"

	"drone/liveness"
	"drone/world"
)

type Command uint8

const (
	None Command = iota
	Up
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
	Brake
	Start
	Reset
	ToggleMap
	QuitCmd
)

const keyEsc = 27

var keymap = map[byte]Command{
	'w': Up, 's': Down, 'a': Left, 'd': Right,
	'q': UpLeft, 'e': UpRight, 'z': DownLeft, 'c': DownRight,
	'x': Brake,
	'i': Start, 'y': Reset, 'm': ToggleMap,
	keyEsc: QuitCmd,
}

// ParseKey maps one keyboard byte to a command; unknown keys are None.
func ParseKey(b byte) Command {
	return keymap[b]
}

// direction is the force increment a directional command adds.
func direction(c Command) (dx, dy float64, ok bool) {
	switch c {
	case Up:
		return 0, -1, true
	case Down:
		return 0, 1, true
	case Left:
		return -1, 0, true
	case Right:
		return 1, 0, true
	case UpLeft:
		return -1, -1, true
	case UpRight:
		return 1, -1, true
	case DownLeft:
		return -1, 1, true
	case DownRight:
		return 1, 1, true
	}
	return 0, 0, false
}

// Apply runs one command as a single critical section.
func Apply(store *world.Store, c Command) {
	store.Update(func(s *world.State) { apply(s, c) })
}

func apply(s *world.State, c Command) {
	if s.Phase == world.Quit {
		return
	}
	if dx, dy, ok := direction(c); ok {
		s.Force.X += dx
		s.Force.Y += dy
		return
	}
	switch c {
	case Brake:
		s.Force = world.Vec{}
	case Start:
		if s.Phase == world.Waiting {
			s.Transition(world.Running)
		}
	case ToggleMap:
		switch s.Phase {
		case world.Running:
			s.Transition(world.MapView)
		case world.MapView:
			s.Transition(world.Running)
		}
	case Reset:
		s.Reset()
	case QuitCmd:
		s.Shutdown(world.ReasonUserQuit)
	}
}

// Controller feeds keys from a stream into the Store.
type Controller struct {
	store *world.Store
	heart liveness.Heart
}

func NewController(store *world.Store, heart liveness.Heart) *Controller {
	return &Controller{store: store, heart: heart}
}

// Run applies keys read from r until ESC, EOF, quit or ctx end.
func (c *Controller) Run(ctx context.Context, r io.Reader) error {
	keys := make(chan byte)
	readErr := make(chan error, 1)
	go func() {
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	beat := time.NewTicker(liveness.Interval)
	defer beat.Stop()
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()
	c.heart.Beat()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err == io.EOF {
				log.Println("keyboard: input closed")
				return nil
			}
			return errors.Wrap(err, "keyboard: read")
		case b := <-keys:
			cmd := ParseKey(b)
			if cmd == None {
				continue
			}
			Apply(c.store, cmd)
			if cmd == QuitCmd {
				fmt.Print(chalk.Yellow)
				log.Println("keyboard: quit requested", chalk.Reset)
				return nil
			}
		case <-beat.C:
			c.heart.Beat()
		case <-poll.C:
			if c.store.Quitting() {
				return nil
			}
		}
	}
}
