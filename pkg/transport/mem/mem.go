package mem

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"otp/pkg/transport"
)

// Transport is an in-process transport using net.Pipe. Useful for tests.
// Writes on a pipe block until the peer reads, so protocols over it must
// alternate sends and receives.
type Transport struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

func New() *Transport { return &Transport{listeners: make(map[string]*listener)} }

func (t *Transport) Kind() transport.Kind { return transport.KindMem }

func (t *Transport) Listen(ctx context.Context, name string) (transport.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.listeners[name]; ok {
		return nil, errors.New("mem: listener already exists")
	}
	l := &listener{name: name, newCh: make(chan *session), closeCh: make(chan struct{})}
	t.listeners[name] = l
	go func() {
		select {
		case <-ctx.Done():
		case <-l.closeCh:
		}
		_ = l.Close()
		t.mu.Lock()
		delete(t.listeners, name)
		t.mu.Unlock()
	}()
	return l, nil
}

// Dial hands the server end of a fresh pipe to the listener, waiting until
// it is accepted.
func (t *Transport) Dial(ctx context.Context, name string) (transport.Session, error) {
	t.mu.Lock()
	l := t.listeners[name]
	t.mu.Unlock()
	if l == nil {
		return nil, errors.New("mem: no such listener")
	}
	c1, c2 := net.Pipe()
	srv := newSession(c1)
	cli := newSession(c2)
	select {
	case l.newCh <- srv:
		return cli, nil
	case <-l.closeCh:
		_ = srv.Close()
		_ = cli.Close()
		return nil, transport.ErrListenerClosed
	case <-ctx.Done():
		_ = srv.Close()
		_ = cli.Close()
		return nil, ctx.Err()
	}
}

type listener struct {
	name    string
	newCh   chan *session
	once    sync.Once
	closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return memAddr(l.name) }

func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, transport.ErrListenerClosed
	case s := <-l.newCh:
		return s, nil
	}
}

func (l *listener) Close() error {
	l.once.Do(func() { close(l.closeCh) })
	return nil
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type session struct {
	mu sync.Mutex
	c  net.Conn
	br *bufio.Reader
}

func newSession(c net.Conn) *session { return &session{c: c, br: bufio.NewReader(c)} }

func (s *session) TransportKind() transport.Kind { return transport.KindMem }
func (s *session) LocalAddr() net.Addr           { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr          { return s.c.RemoteAddr() }

func (s *session) OpenStream(_ context.Context) (transport.Stream, error) { return s, nil }
func (s *session) Close() error                                         { return s.c.Close() }

// Stream methods: length-prefixed frames (u32 LE)
func (s *session) SendBytes(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transport.WriteFrame(s.c, b)
}

func (s *session) RecvBytes() ([]byte, error) { return transport.ReadFrame(s.br) }

func (s *session) SetReadDeadline(t time.Time) error { return s.c.SetReadDeadline(t) }
