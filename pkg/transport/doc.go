// Package transport defines the stream interfaces the session protocol runs
// over and the frame encoding they share.
//
// Key concepts:
//   - Transport: dials/listens for Sessions of a specific Kind (TCP/QUIC/mem)
//   - Session: a bidirectional connection to one peer
//   - Stream: a Send/Recv channel of length-prefixed frames (u32 LE)
//
// Frames are written with a drain loop: a short write is followed by writes
// of the remaining bytes until the frame is out or the link fails. Reads
// always assemble a whole frame, regardless of how the bytes arrive.
package transport
