package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"otp/pkg/transport"
)

// Transport implements a stream-based TCP transport with length-prefixed frames (u32 LE).
type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Kind() transport.Kind { return transport.KindTCP }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	tl := &listener{l: l, closeCh: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = tl.Close()
		case <-tl.closeCh:
		}
	}()
	return tl, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Session, error) {
	d := &net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newSession(c), nil
}

type listener struct {
	l       net.Listener
	once    sync.Once
	closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

// Accept returns the next connection in kernel accept order.
func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := l.l.Accept()
	if err != nil {
		select {
		case <-l.closeCh:
			return nil, transport.ErrListenerClosed
		default:
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return newSession(c), nil
}

func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closeCh)
		err = l.l.Close()
	})
	return err
}

type session struct {
	mu sync.Mutex
	c  net.Conn
	br *bufio.Reader
}

func newSession(c net.Conn) *session {
	return &session{c: c, br: bufio.NewReader(c)}
}

func (s *session) TransportKind() transport.Kind { return transport.KindTCP }
func (s *session) LocalAddr() net.Addr           { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr          { return s.c.RemoteAddr() }

func (s *session) OpenStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) Close() error {
	err := s.c.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Stream methods: length-prefixed frames (u32 LE)
func (s *session) SendBytes(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transport.WriteFrame(s.c, b)
}

func (s *session) RecvBytes() ([]byte, error) { return transport.ReadFrame(s.br) }

func (s *session) SetReadDeadline(t time.Time) error { return s.c.SetReadDeadline(t) }
