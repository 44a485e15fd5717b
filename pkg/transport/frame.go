package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// MaxFrame bounds the size of a single frame body.
const MaxFrame = 1 << 16

// ErrFrameTooLarge is returned for frames above MaxFrame.
var ErrFrameTooLarge = errors.New("invalid frame size")

// WriteFrame writes the u32 LE length prefix and b to w as one buffer,
// looping over short writes until everything is flushed.
func WriteFrame(w io.Writer, b []byte) error {
	if len(b) > MaxFrame {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(b)))
	copy(buf[4:], b)
	return drain(w, buf)
}

func drain(w io.Writer, buf []byte) error {
	total := len(buf)
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
		if len(buf) > 0 {
			zap.L().Warn("not all data written; sending remainder",
				zap.Int("written", total-len(buf)), zap.Int("remaining", len(buf)))
		}
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenbuf[:])
	if n > MaxFrame {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
