package session

import (
	"fmt"

	"go.uber.org/zap"

	"otp/pkg/chunk"
	"otp/pkg/cipher"
	"otp/pkg/protocol"
	"otp/pkg/transport"
)

// Serve runs the server half of one session until the client ends it or a
// fatal error occurs. A normal end returns nil. The caller owns st and closes
// it afterwards.
func Serve(st transport.Stream, role Role, opts Options) error {
	if !role.IsServer() {
		return fmt.Errorf("%q is not a server role", role)
	}
	c := newConn(st, role, opts)
	if err := serverHandshake(c); err != nil {
		return err
	}

	var rounds, processed int64
	for {
		rec, err := c.recv()
		if err != nil {
			c.setState(StateTerminated)
			return err
		}
		switch rec.Type() {
		case protocol.MsgStop:
			c.setState(StateTerminated)
			if err := c.recvStop(&rec); err != nil {
				return err
			}
			c.log.Debug("client finished", zap.Int64("rounds", rounds), zap.Int64("bytes", processed))
			return nil
		case protocol.MsgData:
		default:
			err := &ProtocolError{State: c.state, Detail: "expected data, got " + protocol.TypeName(rec.Type())}
			c.abort(err)
			return err
		}

		c.setState(StateExchanging)
		data := rec.Payload
		if len(data) > chunk.Capacity {
			err := &ProtocolError{State: c.state, Detail: fmt.Sprintf("data chunk of %d bytes exceeds %d", len(data), chunk.Capacity)}
			c.abort(err)
			return err
		}
		if err := chunk.Validate(data, cipher.StreamData); err != nil {
			c.abort(err)
			return err
		}
		if err := c.send(protocol.MsgAck, nil); err != nil {
			c.setState(StateTerminated)
			return err
		}

		krec, err := c.recv()
		if err != nil {
			c.setState(StateTerminated)
			return err
		}
		switch krec.Type() {
		case protocol.MsgStop:
			c.setState(StateTerminated)
			if err := c.recvStop(&krec); err != nil {
				return err
			}
			return &ProtocolError{State: StateExchanging, Detail: "session ended between data and key"}
		case protocol.MsgKey:
		default:
			err := &ProtocolError{State: c.state, Detail: "expected key, got " + protocol.TypeName(krec.Type())}
			c.abort(err)
			return err
		}

		key := krec.Payload
		if len(key) < len(data) {
			err := &LengthError{Resource: string(cipher.StreamKey), Need: processed + int64(len(data)), Have: processed + int64(len(key))}
			c.abort(err)
			return err
		}
		out, err := cipher.Apply(role.Direction(), data, key)
		if err != nil {
			c.abort(err)
			return err
		}
		if err := c.send(protocol.MsgResult, out); err != nil {
			c.setState(StateTerminated)
			return err
		}
		rounds++
		processed += int64(len(data))
	}
}

// serverHandshake reads the client's identity, answers with the server's own
// token and only then validates, so a mismatched client still learns which
// service it reached.
func serverHandshake(c *conn) error {
	c.setState(StateIdentityAwaited)
	rec, err := c.recv()
	if err != nil {
		c.setState(StateTerminated)
		return err
	}
	if rec.Type() != protocol.MsgIdentity {
		c.setState(StateRejected)
		return &ProtocolError{State: StateIdentityAwaited, Detail: "expected identity, got " + protocol.TypeName(rec.Type())}
	}
	if err := c.send(protocol.MsgIdentity, c.role.Token()); err != nil {
		c.setState(StateTerminated)
		return err
	}
	c.setState(StateIdentitySent)
	if want := c.role.Peer(); string(rec.Payload) != string(want) {
		c.setState(StateRejected)
		return &AuthError{Want: want, Got: string(rec.Payload)}
	}
	c.setState(StateValidated)
	return nil
}
