// Package server owns the TCP acceptor: it binds a listener and, for every
// accepted connection, hands off to a session.Driver goroutine.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bugVanisher/srs-session/config"
	"github.com/bugVanisher/srs-session/hooks"
	"github.com/bugVanisher/srs-session/rtmp"
	"github.com/bugVanisher/srs-session/security"
	"github.com/bugVanisher/srs-session/session"
	"github.com/bugVanisher/srs-session/source"
)

// Config bundles the listener address, the config-store path, and the
// optional IP security policy (nil permits every client).
type Config struct {
	Addr       string
	ConfigPath string
	LocalIP    string
	ServerID   string
	Security   *security.Policy
}

// Server accepts RTMP connections and drives one session.Driver per
// connection until Stop is called.
type Server struct {
	cfg Config

	store    *config.Store
	sources  *source.Registry
	hooks    *hooks.Dispatcher
	referer  *security.RefererChecker
	security *security.Policy

	ln net.Listener

	mu      sync.Mutex
	drivers map[*session.Driver]struct{}
}

// New wires the shared collaborators (config store, source registry, hook
// dispatcher, referer checker) that every accepted Driver will share.
func New(ctx context.Context, cfg Config) (*Server, error) {
	store, err := config.NewStore(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		sources:  source.NewRegistry(),
		hooks:    hooks.NewDispatcher(ctx),
		referer:  security.NewRefererChecker(),
		security: cfg.Security,
		drivers:  make(map[*session.Driver]struct{}),
	}, nil
}

// Store exposes the loaded configuration store, for callers that apply
// its top-level sections (logging) outside the per-session path.
func (s *Server) Store() *config.Store { return s.store }

// ListenAndServe binds cfg.Addr and accepts connections until ctx is
// cancelled or an unrecoverable Accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Info().Str("addr", s.cfg.Addr).Msg("rtmp server listening")

	stopWatch := make(chan struct{})
	go s.store.Watch(stopWatch)
	defer close(stopWatch)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error().Err(err).Msg("accept failed")
				return err
			}
		}
		go s.serve(ctx, nc)
	}
}

func (s *Server) serve(ctx context.Context, nc net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("remote_addr", nc.RemoteAddr().String()).Msg("session driver panic recovered")
		}
	}()

	conn := rtmp.NewConn(nc, rtmp.RoleServer)
	driver := session.NewDriver(conn, session.Deps{
		Config:   s.store,
		Sources:  s.sources,
		Hooks:    s.hooks,
		Referer:  s.referer,
		Security: s.security,
		LocalIP:  s.cfg.LocalIP,
		ServerID: s.cfg.ServerID,
	})

	s.track(driver)
	defer s.untrack(driver)

	if err := driver.Run(ctx); err != nil {
		log.Info().Err(err).Str("remote_addr", nc.RemoteAddr().String()).Msg("session ended")
	}
	_ = nc.Close()
}

func (s *Server) track(d *session.Driver) {
	s.mu.Lock()
	s.drivers[d] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(d *session.Driver) {
	s.mu.Lock()
	delete(s.drivers, d)
	s.mu.Unlock()
}

// Stop disposes every in-flight Driver and closes the listener. Disposed
// sessions unwind on their own next wait/recv wake, per session.State's
// cooperative-cancellation contract — Stop does not block on them exiting.
func (s *Server) Stop() error {
	s.mu.Lock()
	for d := range s.drivers {
		d.Dispose()
	}
	s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}
