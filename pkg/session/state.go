package session

// State is a session's position in the handshake and exchange sequence.
type State uint8

const (
	StateInit State = iota
	StateIdentitySent
	StateIdentityAwaited
	StateValidated
	StateExchanging
	StateTerminated
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdentitySent:
		return "identity_sent"
	case StateIdentityAwaited:
		return "identity_awaited"
	case StateValidated:
		return "validated"
	case StateExchanging:
		return "exchanging"
	case StateTerminated:
		return "terminated"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Done reports whether no further records may be exchanged.
func (s State) Done() bool { return s == StateTerminated || s == StateRejected }
