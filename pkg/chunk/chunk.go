// Package chunk segments a byte source into bounded, alphabet-checked chunks.
package chunk

import (
	"errors"
	"io"

	"otp/pkg/cipher"
)

// Capacity is the number of usable bytes read per exchange round.
const Capacity = 255

// Reader yields successive chunks of at most Capacity bytes from a source.
// Chunks from two Readers over aligned sources cover the same offsets.
type Reader struct {
	r      io.Reader
	stream cipher.Stream
	buf    []byte
	off    int64
	done   bool
}

// NewReader wraps r; stream names the source in AlphabetErrors.
func NewReader(r io.Reader, stream cipher.Stream) *Reader {
	return &Reader{r: r, stream: stream, buf: make([]byte, Capacity)}
}

// Consumed returns how many raw bytes have been read from the source.
func (c *Reader) Consumed() int64 { return c.off }

// Next reads up to Capacity bytes, strips one trailing line terminator and
// validates the rest. It returns io.EOF once the source is exhausted.
// The returned slice is only valid until the next call.
func (c *Reader) Next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(c.r, c.buf)
	switch {
	case errors.Is(err, io.EOF):
		c.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		c.done = true
	case err != nil:
		return nil, err
	}
	start := c.off
	c.off += int64(n)
	out := Strip(c.buf[:n])
	if err := Validate(out, c.stream); err != nil {
		var ae *cipher.AlphabetError
		if errors.As(err, &ae) {
			ae.Offset += int(start)
		}
		return nil, err
	}
	return out, nil
}

// Strip removes a single trailing "\n" (and a preceding "\r") if present.
func Strip(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
		if n := len(b); n > 0 && b[n-1] == '\r' {
			b = b[:n-1]
		}
	}
	return b
}

// Validate checks that every byte of b is an alphabet member.
func Validate(b []byte, stream cipher.Stream) error {
	for i, ch := range b {
		if !cipher.IsMember(ch) {
			return &cipher.AlphabetError{Stream: stream, Offset: i, Byte: ch}
		}
	}
	return nil
}
