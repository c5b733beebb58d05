package viewer

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"drone/world"
)

// Service serves the read-only state feed and health checks.
type Service struct {
	addr   string
	hub    *Hub
	checks []healthCheck
}

func NewService(addr string, frames <-chan world.State) *Service {
	return &Service{addr: addr, hub: NewHub(frames)}
}

func (s *Service) Hub() *Hub { return s.hub }

func (s *Service) Handler() http.Handler {
	logger := log.Writer()
	router := mux.NewRouter()
	router.Handle("/ws", handlers.CombinedLoggingHandler(logger,
		http.HandlerFunc(s.wsHandler),
	)).Methods("GET")

	router.Handle("/health", handlers.CombinedLoggingHandler(logger,
		http.HandlerFunc(s.healthHandler),
	)).Methods("GET")

	return router
}

// Run serves until ctx ends. Bind failures are ErrResourceUnavailable.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(world.ErrResourceUnavailable, "viewer listen %s: %v", s.addr, err)
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Println("viewer listening on " + ln.Addr().String())
	err = srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "viewer serve")
}
