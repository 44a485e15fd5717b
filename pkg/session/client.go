package session

import (
	"fmt"

	"go.uber.org/zap"

	"otp/pkg/cipher"
	"otp/pkg/protocol"
	"otp/pkg/transport"
)

// Client drives the client half of a session over one stream.
// It is not safe for concurrent use.
type Client struct {
	c *conn

	dataN int64
	keyN  int64
}

// NewClient prepares a session for a client role. Nothing is sent until Handshake.
func NewClient(st transport.Stream, role Role, opts Options) (*Client, error) {
	if role.IsServer() || role.Peer() == "" {
		return nil, fmt.Errorf("%q is not a client role", role)
	}
	return &Client{c: newConn(st, role, opts)}, nil
}

// State returns the current session state.
func (cl *Client) State() State { return cl.c.state }

// Handshake sends the client's identity and checks the server's reply.
// Any reply other than the paired server's identity, including a hang-up or
// unframed bytes, yields *AuthError and rejects the session.
func (cl *Client) Handshake() error {
	c := cl.c
	if c.state != StateInit {
		return &ProtocolError{State: c.state, Detail: "handshake already done"}
	}
	if err := c.send(protocol.MsgIdentity, c.role.Token()); err != nil {
		c.setState(StateTerminated)
		return err
	}
	c.setState(StateIdentitySent)
	c.setState(StateIdentityAwaited)
	want := c.role.Peer()
	// Anything but the paired server's Identity record means the wrong
	// service is listening.
	rec, err := c.recv()
	if err != nil {
		c.setState(StateRejected)
		return &AuthError{Want: want, Err: err}
	}
	if rec.Type() != protocol.MsgIdentity {
		c.setState(StateRejected)
		return &AuthError{Want: want, Got: protocol.TypeName(rec.Type()),
			Err: &ProtocolError{State: StateIdentityAwaited, Detail: "expected identity, got " + protocol.TypeName(rec.Type())}}
	}
	if string(rec.Payload) != string(want) {
		c.setState(StateRejected)
		return &AuthError{Want: want, Got: string(rec.Payload)}
	}
	c.setState(StateValidated)
	c.log.Debug("handshake complete")
	return nil
}

// Exchange runs one round: data out, ack in, key out, result in. Only the
// leading len(data) bytes of key are sent. A key shorter than data ends the
// session with a length abort.
func (cl *Client) Exchange(data, key []byte) ([]byte, error) {
	c := cl.c
	if c.state != StateValidated && c.state != StateExchanging {
		return nil, &ProtocolError{State: c.state, Detail: "exchange outside an open session"}
	}
	c.setState(StateExchanging)

	// key consumed must never fall behind data consumed
	if len(key) < len(data) {
		err := &LengthError{Resource: string(cipher.StreamKey), Need: cl.dataN + int64(len(data)), Have: cl.keyN + int64(len(key))}
		c.abort(err)
		return nil, err
	}
	cl.dataN += int64(len(data))
	cl.keyN += int64(len(data))

	if err := c.send(protocol.MsgData, data); err != nil {
		return nil, cl.fail(err)
	}
	if _, err := cl.await(protocol.MsgAck, true); err != nil {
		return nil, err
	}
	if err := c.send(protocol.MsgKey, key[:len(data)]); err != nil {
		return nil, cl.fail(err)
	}
	rec, err := cl.await(protocol.MsgResult, false)
	if err != nil {
		return nil, err
	}
	if len(rec.Payload) != len(data) {
		err := &ProtocolError{State: c.state, Detail: fmt.Sprintf("result has %d bytes, sent %d", len(rec.Payload), len(data))}
		c.abort(err)
		return nil, err
	}
	return rec.Payload, nil
}

// await receives the next record. A Stop ends the session; anything else
// satisfies an ack wait, while other waits require the exact type.
func (cl *Client) await(want uint8, anyCounts bool) (protocol.Record, error) {
	c := cl.c
	rec, err := c.recv()
	if err != nil {
		return rec, cl.fail(err)
	}
	if rec.Type() == protocol.MsgStop {
		c.setState(StateTerminated)
		if err := c.recvStop(&rec); err != nil {
			return rec, err
		}
		return rec, &ProtocolError{State: StateExchanging, Detail: "server ended the session while awaiting " + protocol.TypeName(want)}
	}
	if !anyCounts && rec.Type() != want {
		err := &ProtocolError{State: c.state, Detail: "expected " + protocol.TypeName(want) + ", got " + protocol.TypeName(rec.Type())}
		c.abort(err)
		return rec, err
	}
	return rec, nil
}

// fail marks the session dead after a transport or decode error.
func (cl *Client) fail(err error) error {
	cl.c.setState(StateTerminated)
	return err
}

// Finish sends the end-of-data record. It is a no-op on a finished session.
func (cl *Client) Finish() error {
	c := cl.c
	if c.state.Done() {
		return nil
	}
	rec, err := protocol.StopRecord(c.opts.Registry, c.opts.Format, nil)
	if err == nil {
		err = c.send(rec.Type(), rec.Payload)
	}
	c.setState(StateTerminated)
	c.log.Debug("session finished", zap.Int64("bytes", cl.dataN))
	return err
}

// Abort ends the session with a reason derived from cause, so the server
// stops waiting for the next record.
func (cl *Client) Abort(cause error) {
	if cl.c.state.Done() {
		return
	}
	cl.c.abort(cause)
}
