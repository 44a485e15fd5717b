package protocol

// Record types (fits in uint8). Zero is never sent.
const (
	MsgUnknown  uint8 = iota
	MsgIdentity       // role token, exchanged once per connection
	MsgData           // data chunk
	MsgAck            // round synchronization, payload ignored
	MsgKey            // key chunk
	MsgResult         // transformed chunk
	MsgStop           // end of session; optional abort body
)

// TypeName returns a short label for logging.
func TypeName(t uint8) string {
	switch t {
	case MsgIdentity:
		return "identity"
	case MsgData:
		return "data"
	case MsgAck:
		return "ack"
	case MsgKey:
		return "key"
	case MsgResult:
		return "result"
	case MsgStop:
		return "stop"
	default:
		return "unknown"
	}
}

// ContentType hints for abort bodies.
const (
	ContentUnknown = "application/octet-stream"
	ContentCBOR    = "application/cbor"
	ContentJSON    = "application/json"
)

// Version is the only record version this package speaks.
const Version uint8 = 1

// MaxPayload bounds a single record's payload.
const MaxPayload = 4096
