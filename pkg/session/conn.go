package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"otp/pkg/cipher"
	"otp/pkg/protocol"
	"otp/pkg/protocol/codec"
	"otp/pkg/transport"
)

// Options tune one session. The zero value uses CBOR abort bodies, no read
// deadline and the global logger.
type Options struct {
	Registry  *codec.Registry
	Format    protocol.Format
	IOTimeout time.Duration
	Logger    *zap.Logger
	// SessionID is echoed in abort bodies so both logs can be correlated.
	SessionID string
}

// conn carries records over one stream and tracks the session state.
type conn struct {
	st    transport.Stream
	role  Role
	opts  Options
	log   *zap.Logger
	state State
}

func newConn(st transport.Stream, role Role, opts Options) *conn {
	if opts.Registry == nil {
		opts.Registry = codec.NewRegistry()
	}
	if opts.Format == protocol.FormatUnknown {
		opts.Format = protocol.FormatCBOR
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.L().With(zap.String("role", string(role)))
	}
	return &conn{st: st, role: role, opts: opts, log: lg}
}

func (c *conn) setState(s State) {
	c.log.Debug("session state", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
}

func (c *conn) send(t uint8, payload []byte) error {
	rec := protocol.NewRecord(t, payload)
	b, err := rec.EncodeFrame()
	if err != nil {
		return &ProtocolError{State: c.state, Detail: err.Error()}
	}
	if err := c.st.SendBytes(b); err != nil {
		return &TransportError{Op: "send " + protocol.TypeName(t), Err: err}
	}
	return nil
}

func (c *conn) recv() (protocol.Record, error) {
	var rec protocol.Record
	if c.opts.IOTimeout > 0 {
		if err := c.st.SetReadDeadline(time.Now().Add(c.opts.IOTimeout)); err != nil {
			return rec, &TransportError{Op: "set deadline", Err: err}
		}
	}
	b, err := c.st.RecvBytes()
	if err != nil {
		return rec, &TransportError{Op: "receive", Err: err}
	}
	if err := rec.DecodeFrame(b); err != nil {
		return rec, &ProtocolError{State: c.state, Detail: err.Error()}
	}
	return rec, nil
}

// recvStop interprets a Stop record: nil for a normal end, otherwise the
// peer's abort.
func (c *conn) recvStop(rec *protocol.Record) error {
	a, err := protocol.ParseStop(c.opts.Registry, rec)
	if err != nil {
		return &ProtocolError{State: c.state, Detail: err.Error()}
	}
	if a == nil {
		return nil
	}
	return &PeerAbortError{Abort: *a}
}

// abort sends a Stop record describing cause. Failures are logged only: the
// session is ending either way.
func (c *conn) abort(cause error) {
	a := abortFor(cause)
	a.Session = c.opts.SessionID
	rec, err := protocol.StopRecord(c.opts.Registry, c.opts.Format, &a)
	if err == nil {
		err = c.send(rec.Type(), rec.Payload)
	}
	if err != nil {
		c.log.Warn("could not notify peer", zap.String("abort", a.Code), zap.Error(err))
	}
	c.setState(StateTerminated)
}

// abortFor maps a local failure onto the reason sent to the peer.
func abortFor(err error) protocol.Abort {
	var (
		ae *cipher.AlphabetError
		le *LengthError
	)
	switch {
	case errors.As(err, &ae):
		return protocol.Abort{Code: protocol.AbortAlphabet, Stream: string(ae.Stream), Offset: ae.Offset,
			Detail: fmt.Sprintf("bad character %q", ae.Byte)}
	case errors.As(err, &le):
		return protocol.Abort{Code: protocol.AbortLength, Stream: string(cipher.StreamKey), Offset: int(le.Have),
			Detail: le.Error()}
	default:
		return protocol.Abort{Code: protocol.AbortProtocol, Detail: err.Error()}
	}
}
