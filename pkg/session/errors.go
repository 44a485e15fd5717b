package session

import (
	"fmt"

	"otp/pkg/protocol"
)

// AuthError reports a peer that did not present the expected role. Err is
// set when no well-formed identity arrived at all: the peer hung up, sent
// something other than an Identity record, or does not speak this framing.
type AuthError struct {
	Want Role
	Got  string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity mismatch: peer is not %s: %v", e.Want, e.Err)
	}
	return fmt.Sprintf("identity mismatch: peer is %q, want %q", e.Got, e.Want)
}

func (e *AuthError) Unwrap() error { return e.Err }

// LengthError reports key material shorter than the data it must cover.
// Resource names the file or stream the shortfall was found in.
type LengthError struct {
	Resource string
	Need     int64
	Have     int64
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s is too short: %d key bytes for %d data bytes", e.Resource, e.Have, e.Need)
}

// TransportError wraps a failed send or receive.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// PeerAbortError is returned when the peer ends the session with a reason.
type PeerAbortError struct {
	Abort protocol.Abort
}

func (e *PeerAbortError) Error() string { return "peer aborted: " + e.Abort.String() }

// ProtocolError reports a record that is malformed or not allowed in the
// current state.
type ProtocolError struct {
	State  State
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in state %s: %s", e.State, e.Detail)
}
