package supervisor

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/ttacon/chalk"
	"golang.org/x/sync/errgroup"

	"drone/config"
	"drone/display"
	"drone/input"
	"drone/liveness"
	"drone/peer"
	"drone/physics"
	"drone/spawner"
	"drone/viewer"
	"drone/world"
)

const (
	// ScoreInterval is how often the score is recomputed and params reloaded.
	ScoreInterval = 5 * time.Second

	// Grace bounds how long workers get to wind down after Quit.
	Grace = 2 * time.Second

	// NegotiateWait is how long an initiator holds the window back for size.
	NegotiateWait = 2 * time.Second

	ListenWidth  = 80
	ListenHeight = 30
)

// Supervisor owns the blackboard and every worker for one run.
type Supervisor struct {
	cfg     config.Settings
	store   *world.Store
	params  config.Params
	monitor *liveness.Monitor
	keys    io.Reader

	renderer *display.Renderer
	link     *peer.Link
	ln       net.Listener
	viewer   *viewer.Service

	scoreEvery    time.Duration
	beatEvery     time.Duration
	grace         time.Duration
	negotiateWait time.Duration
	seed          int64
	paramErr      string
}

// New creates the segment and seeds it. keys feeds the keyboard worker;
// nil runs without one.
func New(cfg config.Settings, keys io.Reader) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		cfg:           cfg,
		keys:          keys,
		params:        config.DefaultParams(),
		scoreEvery:    ScoreInterval,
		beatEvery:     liveness.Interval,
		grace:         Grace,
		negotiateWait: NegotiateWait,
		seed:          time.Now().UnixNano(),
	}
	s.loadParams()

	init := world.NewState()
	s.params.Apply(&init)
	switch cfg.Mode {
	case config.ModeListen:
		init.Bounds = world.Bounds{Width: ListenWidth, Height: ListenHeight}
		init.SizeLocked = true
	case config.ModeDial:
		init.SizeLocked = true
	}

	seg, err := s.openSegment()
	if err != nil {
		return nil, err
	}
	store, err := world.NewStore(cfg.ShmName, seg, init)
	if err != nil {
		seg.Close()
		return nil, errors.Wrap(err, "seed blackboard")
	}
	s.store = store

	if cfg.Mode == config.ModeListen {
		if s.ln, err = peer.Bind(cfg.PeerAddr); err != nil {
			store.Close()
			return nil, err
		}
	}

	roles := []liveness.Role{liveness.Dynamics, liveness.Window, liveness.Supervisor}
	if keys != nil {
		roles = append(roles, liveness.Keyboard)
	}
	if cfg.Networked() {
		roles = append(roles, liveness.Peer)
	} else {
		roles = append(roles, liveness.Spawner)
	}
	s.monitor = liveness.NewMonitor(roles...)

	s.renderer = display.NewRenderer(store, s.monitor.Heart(liveness.Window),
		world.Bounds{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight})
	if cfg.Networked() {
		role := peer.Listener
		if cfg.Mode == config.ModeDial {
			role = peer.Initiator
		}
		s.link = peer.NewLink(store, role, cfg.Wire, s.monitor.Heart(liveness.Peer))
	}
	if cfg.ViewerAddr != "" {
		frames, _ := s.renderer.Subscribe()
		s.viewer = viewer.NewService(cfg.ViewerAddr, frames)
		s.registerHealth()
	}
	return s, nil
}

func (s *Supervisor) openSegment() (world.Segment, error) {
	if s.cfg.ShmDir == "" {
		return world.NewMemorySegment(), nil
	}
	return world.CreateSharedSegment(s.cfg.ShmDir, s.cfg.ShmName, s.cfg.SemName)
}

func (s *Supervisor) Store() *world.Store { return s.store }

// PeerAddr is the bound listening address in listen mode.
func (s *Supervisor) PeerAddr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Supervisor) Close() error {
	if s.ln != nil {
		s.ln.Close()
	}
	return s.store.Close()
}

func (s *Supervisor) registerHealth() {
	s.viewer.Register("liveness", func() error {
		if stale := s.monitor.Stale(2 * liveness.Interval); len(stale) > 0 {
			return errors.Errorf("stale roles: %s", joinRoles(stale))
		}
		return nil
	})
	if s.link != nil {
		s.viewer.Register("peer", func() error {
			if st := s.link.Status(); st == peer.StatusLost {
				return errors.Errorf("session %s %s", s.link.ID(), st)
			}
			return nil
		})
	}
}

// Run starts every worker and blocks until all of them are done. A lost
// peer session ends the run normally.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, kill := context.WithCancel(ctx)
	defer kill()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Printf("received %s, shutting down", sig)
			s.store.Shutdown(world.ReasonSignal)
		case <-runCtx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(runCtx)
	svcCtx, quit := context.WithCancel(gctx)
	defer quit()

	fmt.Print(chalk.Green)
	log.Printf("drone run starting: mode=%s bounds=%+v%s", s.cfg.Mode, s.store.Snapshot().Bounds, chalk.Reset)

	g.Go(func() error { return s.monitor.Run(svcCtx) })
	if s.viewer != nil {
		s.spawn(g, svcCtx, "viewer", s.viewer.Run)
	}
	s.spawn(g, gctx, liveness.Supervisor, func(ctx context.Context) error {
		return s.watch(ctx, quit, kill)
	})
	s.spawn(g, gctx, liveness.Dynamics, physics.NewEngine(s.store, s.monitor.Heart(liveness.Dynamics)).Run)
	s.spawn(g, gctx, liveness.Window, s.runWindow)
	if s.keys != nil {
		ctrl := input.NewController(s.store, s.monitor.Heart(liveness.Keyboard))
		s.spawn(g, gctx, liveness.Keyboard, func(ctx context.Context) error {
			return ctrl.Run(ctx, s.keys)
		})
	}
	if s.link != nil {
		s.spawn(g, gctx, liveness.Peer, s.runPeer)
	} else {
		sp := spawner.NewSpawner(s.store, s.monitor.Heart(liveness.Spawner), s.seed)
		s.spawn(g, gctx, liveness.Spawner, sp.Run)
	}

	err := g.Wait()
	if errors.Cause(err) == peer.ErrSessionLost {
		err = nil
	}

	var final world.State
	s.store.Update(func(st *world.State) {
		st.Score = world.Score(st.Stats)
		final = *st
	})
	fmt.Print(chalk.Green)
	log.Printf("drone run finished (%s): score %.2f, targets %d, obstacles %d, distance %.1f, %.1fs%s",
		final.Reason, final.Score, final.Stats.HitTargets, final.Stats.HitObstacles,
		final.Stats.Distance, final.Stats.Elapsed, chalk.Reset)
	return err
}

// spawn runs one worker. Whatever way it returns, the run is told to quit.
func (s *Supervisor) spawn(g *errgroup.Group, ctx context.Context, role liveness.Role, run func(context.Context) error) {
	g.Go(func() error {
		err := run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.store.Shutdown(world.ReasonWorkerExit)
		if err != nil {
			fmt.Print(chalk.Red)
			log.Printf("%s exited: %v%s", role, err, chalk.Reset)
			return errors.Wrap(err, string(role))
		}
		log.Printf("%s exited", role)
		return nil
	})
}

// watch keeps the score and params fresh and starts teardown on Quit.
func (s *Supervisor) watch(ctx context.Context, quit, kill context.CancelFunc) error {
	heart := s.monitor.Heart(liveness.Supervisor)
	heart.Beat()
	score := time.NewTicker(s.scoreEvery)
	defer score.Stop()
	beat := time.NewTicker(s.beatEvery)
	defer beat.Stop()
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if s.store.Quitting() {
				quit()
				time.AfterFunc(s.grace, kill)
				return nil
			}
		case <-beat.C:
			heart.Beat()
		case <-score.C:
			s.refresh()
			if stale := s.monitor.Stale(2 * liveness.Interval); len(stale) > 0 {
				fmt.Print(chalk.Yellow)
				log.Printf("stale workers: %s%s", joinRoles(stale), chalk.Reset)
			}
		}
	}
}

func (s *Supervisor) refresh() {
	s.loadParams()
	p := s.params
	networked := s.cfg.Networked()
	s.store.Update(func(st *world.State) {
		st.Score = world.Score(st.Stats)
		st.Params = p.Physics
		if !networked {
			st.SetCounts(p.NumObstacles, p.NumTargets)
		}
	})
}

// loadParams re-reads the params file, logging each distinct failure once.
func (s *Supervisor) loadParams() {
	p := s.params
	err := config.LoadParams(s.cfg.ParamsPath, &p)
	s.params = p
	if err == nil {
		s.paramErr = ""
		return
	}
	if msg := err.Error(); msg != s.paramErr {
		s.paramErr = msg
		fmt.Print(chalk.Yellow)
		log.Printf("params: %v (keeping prior values)%s", err, chalk.Reset)
	}
}

func (s *Supervisor) runWindow(ctx context.Context) error {
	if s.cfg.Mode == config.ModeDial {
		s.awaitSize(ctx)
	}
	return s.renderer.Run(ctx)
}

// awaitSize polls for the negotiated size, giving up after negotiateWait.
func (s *Supervisor) awaitSize(ctx context.Context) {
	deadline := time.Now().Add(s.negotiateWait)
	for time.Now().Before(deadline) {
		var ok bool
		s.store.View(func(st world.State) { ok = st.SizeNegotiated })
		if ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	fmt.Print(chalk.Yellow)
	log.Printf("size not negotiated after %s, starting window anyway%s", s.negotiateWait, chalk.Reset)
}

func (s *Supervisor) runPeer(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Cause(err) == peer.ErrSessionLost {
			s.store.Shutdown(world.ReasonPeerLost)
		}
		return err
	}
	return s.link.Run(ctx, conn)
}

// connect accepts or dials the peer, beating for the peer role while it waits.
func (s *Supervisor) connect(ctx context.Context) (net.Conn, error) {
	heart := s.monitor.Heart(liveness.Peer)
	heart.Beat()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(s.beatEvery)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				heart.Beat()
			}
		}
	}()

	if s.ln != nil {
		return peer.Accept(ctx, s.ln)
	}
	return peer.Dial(ctx, s.cfg.PeerAddr)
}

func joinRoles(rs []liveness.Role) string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
