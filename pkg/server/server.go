// Package server accepts cipher sessions and runs each in its own worker,
// bounding how many workers are active at once.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"otp/pkg/observability"
	"otp/pkg/protocol"
	"otp/pkg/protocol/codec"
	"otp/pkg/session"
	"otp/pkg/transport"
)

// DefaultMaxWorkers bounds active sessions when Config.MaxWorkers is unset.
const DefaultMaxWorkers = 5

// acceptBackoff spaces out retries after a transient accept failure.
const acceptBackoff = 50 * time.Millisecond

// Config describes one listening server.
type Config struct {
	Role       session.Role
	Transport  transport.Transport
	Addr       string
	MaxWorkers int
	// IOTimeout is the per-record read deadline inside a session; zero disables it.
	IOTimeout time.Duration
	// Format encodes abort bodies sent to clients.
	Format protocol.Format
}

// Stats is a snapshot of the admission counters. Finished counts every
// session that released its slot; Failed is the subset that ended in error.
type Stats struct {
	MaxWorkers int
	Active     int64
	Waiting    int64
	Finished   int64
	Failed     int64
}

// Server owns the listener and the worker slots.
type Server struct {
	cfg Config
	reg *codec.Registry
	sem *semaphore.Weighted

	active   atomic.Int64
	waiting  atomic.Int64
	finished atomic.Int64
	failed   atomic.Int64

	wg    sync.WaitGroup
	ready chan struct{}
	addr  net.Addr
}

func New(cfg Config) (*Server, error) {
	if !cfg.Role.IsServer() {
		return nil, fmt.Errorf("%q is not a server role", cfg.Role)
	}
	if cfg.Transport == nil {
		return nil, errors.New("server: no transport")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	return &Server{
		cfg:   cfg,
		reg:   codec.NewRegistry(),
		sem:   semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address. Valid after Ready is closed.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) Stats() Stats {
	return Stats{
		MaxWorkers: s.cfg.MaxWorkers,
		Active:     s.active.Load(),
		Waiting:    s.waiting.Load(),
		Finished:   s.finished.Load(),
		Failed:     s.failed.Load(),
	}
}

// Serve listens and admits sessions until ctx is cancelled. Connections
// beyond MaxWorkers are accepted in order and wait for a free slot; none is
// refused. Serve returns after every admitted worker has finished.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := s.cfg.Transport.Listen(ctx, s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	defer ln.Close()
	s.addr = ln.Addr()
	close(s.ready)
	zap.L().Info("listening",
		zap.String("role", string(s.cfg.Role)),
		zap.Stringer("transport", s.cfg.Transport.Kind()),
		zap.Stringer("addr", s.addr),
		zap.Int("max_workers", s.cfg.MaxWorkers))

	err = s.acceptLoop(ctx, ln)
	s.wg.Wait()
	zap.L().Info("server stopped", zap.Int64("finished", s.finished.Load()))
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln transport.Listener) error {
	for {
		sess, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrListenerClosed) {
				return nil
			}
			zap.L().Warn("accept failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptBackoff):
			}
			continue
		}

		// The accept loop is the only caller of Acquire, so slots are handed
		// out in accept order.
		s.waiting.Inc()
		if s.active.Load() >= int64(s.cfg.MaxWorkers) {
			zap.L().Info("at capacity, connection queued", zap.Stringer("raddr", sess.RemoteAddr()))
		}
		err = s.sem.Acquire(ctx, 1)
		s.waiting.Dec()
		if err != nil {
			_ = sess.Close()
			return nil
		}
		s.active.Inc()
		s.wg.Add(1)
		go s.work(ctx, sess)
	}
}

// work runs one session end to end. The slot is released on every exit path.
func (s *Server) work(ctx context.Context, sess transport.Session) {
	id := uuid.NewString()
	lg := observability.SessionLogger(id, string(s.cfg.Role), sess.RemoteAddr().String())
	defer s.wg.Done()
	defer func() {
		s.active.Dec()
		s.finished.Inc()
		s.sem.Release(1)
		lg.Debug("slot released", zap.Int64("active", s.active.Load()))
	}()
	defer sess.Close()
	defer func() {
		if r := recover(); r != nil {
			s.failed.Inc()
			lg.Error("worker panic", zap.Any("panic", r))
		}
	}()

	lg.Info("session admitted", zap.Int64("active", s.active.Load()))
	start := time.Now()

	// Admitted sessions run to completion even if the server is shutting
	// down, but a peer that never opens its stream is bounded by IOTimeout.
	octx := context.WithoutCancel(ctx)
	if s.cfg.IOTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(octx, s.cfg.IOTimeout)
		defer cancel()
	}
	st, err := sess.OpenStream(octx)
	if err != nil {
		s.failed.Inc()
		lg.Warn("open stream", zap.Error(err))
		return
	}
	err = session.Serve(st, s.cfg.Role, session.Options{
		Registry:  s.reg,
		Format:    s.cfg.Format,
		IOTimeout: s.cfg.IOTimeout,
		Logger:    lg,
		SessionID: id,
	})
	if err != nil {
		s.failed.Inc()
		logSessionError(lg, err)
		return
	}
	lg.Info("session complete", zap.Duration("took", time.Since(start)))
}

func logSessionError(lg *zap.Logger, err error) {
	var (
		ae *session.AuthError
		pa *session.PeerAbortError
		te *session.TransportError
	)
	switch {
	case errors.As(err, &ae):
		lg.Warn("client rejected", zap.String("got", ae.Got), zap.String("want", string(ae.Want)))
	case errors.As(err, &pa):
		lg.Warn("client aborted", zap.String("reason", pa.Abort.String()))
	case errors.As(err, &te):
		lg.Warn("transport failure", zap.String("op", te.Op), zap.Error(te.Err))
	default:
		lg.Warn("session failed", zap.Error(err))
	}
}
