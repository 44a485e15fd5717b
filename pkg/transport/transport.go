package transport

import (
	"context"
	"errors"
	"net"
	"time"
)

// Kind identifies the link type.
type Kind int

const (
	KindUnknown Kind = iota
	KindTCP
	KindQUIC
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindQUIC:
		return "quic"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("listener closed")

// Stream is a bidirectional frame stream.
// Exactly one reader and one writer goroutine are expected.
type Stream interface {
	// SendBytes sends one frame; it returns only after every byte was written
	// or a hard transport error occurred.
	SendBytes([]byte) error
	// RecvBytes receives the next whole frame, however the transport fragments it.
	RecvBytes() ([]byte, error)
	// SetReadDeadline bounds the next RecvBytes calls; zero disables it.
	SetReadDeadline(time.Time) error
	Close() error
}

// Session is one accepted or dialed connection.
type Session interface {
	TransportKind() Kind
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// OpenStream returns the session's frame stream. Transports without
	// multiplexing return the same stream every time.
	OpenStream(ctx context.Context) (Stream, error)

	// Close closes the entire session.
	Close() error
}

// Listener accepts inbound sessions.
type Listener interface {
	// Accept blocks until an inbound session is available, ctx is done or
	// the listener is closed.
	Accept(ctx context.Context) (Session, error)
	// Addr returns the local listening address.
	Addr() net.Addr
	// Close stops the listener and unblocks Accept.
	Close() error
}

// Transport provides dialing/listening for a specific link kind.
type Transport interface {
	Kind() Kind
	Listen(ctx context.Context, address string) (Listener, error)
	Dial(ctx context.Context, address string) (Session, error)
}
