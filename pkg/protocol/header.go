package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed record header layout (8 bytes). Integers are little-endian.
//
//  0 ..1   Magic      'O''T' (0x544f)
//  2       Version    u8
//  3       Type       u8
//  4 ..7   PayloadLen u32
const (
	HeaderSize = 8
	magicWord  = uint16(0x544f) // 'O''T'
)

var (
	ErrShortHeader = errors.New("short header")
	ErrBadMagic    = errors.New("bad magic")
)

// Header describes metadata for a record.
type Header struct {
	Version    uint8
	Type       uint8
	PayloadLen uint32
}

// MarshalBinary encodes header to an 8-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], magicWord)
	buf[2] = h.Version
	buf[3] = h.Type
	binary.LittleEndian.PutUint32(buf[4:8], h.PayloadLen)
	return buf, nil
}

// UnmarshalBinary decodes header from an 8-byte buffer.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrShortHeader
	}
	if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
		return ErrBadMagic
	}
	h.Version = buf[2]
	h.Type = buf[3]
	h.PayloadLen = binary.LittleEndian.Uint32(buf[4:8])
	return nil
}

// Validate rejects versions and types this package does not understand.
func (h *Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("unsupported version %d", h.Version)
	}
	if h.Type == MsgUnknown || h.Type > MsgStop {
		return fmt.Errorf("unknown record type %d", h.Type)
	}
	if h.PayloadLen > MaxPayload {
		return fmt.Errorf("payload too large: %d", h.PayloadLen)
	}
	return nil
}
