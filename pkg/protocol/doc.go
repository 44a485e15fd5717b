// Package protocol defines the record framing exchanged between clients and
// servers.
//
// Every logical unit travels as one transport frame holding an 8-byte header
// and a payload. The header's type byte, not the payload, decides what a
// record means, so a data chunk can never be mistaken for the end of a
// session:
//
//	Identity  role token, sent once by each side
//	Data      a data chunk (at most 255 alphabet symbols)
//	Ack       round synchronization after Data
//	Key       the key chunk for the same round
//	Result    the transformed chunk
//	Stop      end of session; a body, if present, is an Abort
package protocol
