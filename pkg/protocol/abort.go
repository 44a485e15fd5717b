package protocol

import (
	"fmt"

	"otp/pkg/protocol/codec"
)

// Abort codes carried in a Stop record.
const (
	AbortAlphabet = "alphabet"
	AbortLength   = "length"
	AbortProtocol = "protocol"
)

// Abort explains an abnormal end of session. It travels as the body of a
// Stop record; a Stop with no body is a normal end of data.
type Abort struct {
	Code    string `json:"code" cbor:"1,keyasint"`
	Stream  string `json:"stream,omitempty" cbor:"2,keyasint,omitempty"`
	Offset  int    `json:"offset,omitempty" cbor:"3,keyasint,omitempty"`
	Detail  string `json:"detail,omitempty" cbor:"4,keyasint,omitempty"`
	Session string `json:"session,omitempty" cbor:"5,keyasint,omitempty"`
}

func (a Abort) String() string {
	if a.Stream != "" {
		return fmt.Sprintf("%s error in %s at offset %d: %s", a.Code, a.Stream, a.Offset, a.Detail)
	}
	return fmt.Sprintf("%s error: %s", a.Code, a.Detail)
}

// StopRecord builds a Stop record. A nil abort yields the normal-end form.
func StopRecord(reg *codec.Registry, f Format, a *Abort) (Record, error) {
	if a == nil {
		return NewRecord(MsgStop, nil), nil
	}
	b, err := EncodeBody(reg, f, a)
	if err != nil {
		return Record{}, fmt.Errorf("encode abort: %w", err)
	}
	return NewRecord(MsgStop, b), nil
}

// ParseStop returns the abort carried by a Stop record, or nil for a normal end.
func ParseStop(reg *codec.Registry, r *Record) (*Abort, error) {
	if r.Type() != MsgStop {
		return nil, fmt.Errorf("not a stop record: %s", TypeName(r.Type()))
	}
	if len(r.Payload) == 0 {
		return nil, nil
	}
	var a Abort
	if _, err := DecodeBody(reg, r.Payload, &a); err != nil {
		return nil, fmt.Errorf("decode abort: %w", err)
	}
	return &a, nil
}
