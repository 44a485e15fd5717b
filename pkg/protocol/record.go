package protocol

import (
	"fmt"
	"io"
)

// Record is a header + payload wrapper for one logical protocol unit.
type Record struct {
	Header  Header
	Payload []byte
}

// NewRecord builds a record of type t carrying payload.
func NewRecord(t uint8, payload []byte) Record {
	return Record{Header: Header{Version: Version, Type: t}, Payload: payload}
}

// Type returns the record type.
func (r *Record) Type() uint8 { return r.Header.Type }

// EncodeFrame returns header+payload as a single byte slice.
func (r *Record) EncodeFrame() ([]byte, error) {
	if len(r.Payload) > MaxPayload {
		return nil, fmt.Errorf("payload too large: %d", len(r.Payload))
	}
	r.Header.PayloadLen = uint32(len(r.Payload))
	hb, err := r.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, HeaderSize+len(r.Payload))
	copy(out, hb)
	copy(out[HeaderSize:], r.Payload)
	return out, nil
}

// DecodeFrame parses exactly one record from buf. The declared payload
// length must match the bytes that follow the header.
func (r *Record) DecodeFrame(buf []byte) error {
	if len(buf) < HeaderSize {
		return io.ErrUnexpectedEOF
	}
	if err := r.Header.UnmarshalBinary(buf[:HeaderSize]); err != nil {
		return err
	}
	if err := r.Header.Validate(); err != nil {
		return err
	}
	need := int(r.Header.PayloadLen)
	if HeaderSize+need != len(buf) {
		return fmt.Errorf("payload length %d does not match frame (%d bytes)", need, len(buf)-HeaderSize)
	}
	r.Payload = append(r.Payload[:0], buf[HeaderSize:]...)
	return nil
}
