// Package server implements the TCP accept loop: bind, accept forever,
// assign a monotonic ClientID per connection, spawn an independent task
// running conn.Run, and shut down cooperatively on a termination signal.
// Grounded on probe/backend.go's Start/Stop lifecycle, generalizing its
// "close(quitSync); wg.Wait()" idiom onto golang.org/x/sync/errgroup.
package server

import (
	"context"
	"fmt"
	"math"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/solra/onizd/config"
	"github.com/solra/onizd/conn"
	"github.com/solra/onizd/imap"
	"github.com/solra/onizd/onizlog"
	"github.com/solra/onizd/snapshot"
)

// Server holds the shared InterlayerMap and assigns ClientIDs to the
// connection tasks it spawns; the listener itself is local to Run.
type Server struct {
	cfg *config.Config
	m   *imap.Map
	lg  onizlog.Logger

	nextClientID uint64
}

// New constructs a Server over an existing InterlayerMap (so callers can
// pre-populate it, e.g. from a loaded snapshot, before Run is called).
func New(cfg *config.Config, m *imap.Map, lg onizlog.Logger) *Server {
	return &Server{cfg: cfg, m: m, lg: lg}
}

// Run loads the snapshot file if configured, binds the listener, and
// blocks until ctx is canceled, at which point it stops accepting and
// saves the snapshot. In-flight connection goroutines are neither waited
// for nor closed by Run.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.SaveFile != "" {
		if err := snapshot.Load(s.cfg.SaveFile, s.m, s.cfg.MaxObjectSize); err != nil {
			s.lg.Warn("snapshot load failed, starting empty", "err", err)
		}
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", s.cfg.Listen, err)
	}
	s.lg.Info("listening", "addr", s.cfg.Listen)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})
	group.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	err = group.Wait()
	if s.cfg.SaveFile != "" {
		if saveErr := snapshot.Save(s.cfg.SaveFile, s.m); saveErr != nil {
			s.lg.Error("snapshot save failed", "err", saveErr)
		} else {
			s.lg.Info("snapshot saved", "path", s.cfg.SaveFile)
		}
	}
	if err != nil && gctx.Err() != nil {
		return nil // shutdown was requested; not a real error
	}
	return err
}

// acceptLoop accepts connections until ln is closed (by the shutdown
// goroutine above) or a non-transient error occurs. It is the sole
// writer of nextClientID, so assignment needs no synchronization.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		if s.nextClientID == math.MaxUint64 {
			// 64-bit ClientID counter would overflow; abort the process
			// rather than reuse an id.
			panic("server: ClientID counter overflow")
		}
		clientID := s.nextClientID
		s.nextClientID++

		go func() {
			if err := conn.Run(rawConn, clientID, s.m, s.cfg, s.lg); err != nil {
				s.lg.Debug("connection ended with error", "client", clientID, "err", err)
			}
		}()
	}
}
