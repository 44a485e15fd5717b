package protocol

import (
	"fmt"

	"otp/pkg/protocol/codec"
)

// Format is a compact on-wire indicator of body encoding.
// It is carried as the first byte of a Stop record's payload.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return ContentJSON
	case FormatCBOR:
		return ContentCBOR
	default:
		return ContentUnknown
	}
}

// ParseFormat maps a config name ("json", "cbor") to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "json":
		return FormatJSON, nil
	case "cbor", "":
		return FormatCBOR, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown body format: %q", name)
	}
}

// CodecFor returns a codec instance for a given format.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
	switch f {
	case FormatJSON:
		if c := r.Get(ContentJSON); c != nil {
			return c, nil
		}
		return codec.JSON(), nil
	case FormatCBOR:
		if c := r.Get(ContentCBOR); c != nil {
			return c, nil
		}
		return codec.CBOR()
	default:
		return nil, fmt.Errorf("unknown format: %d", f)
	}
}

// EncodeBody serializes v using the codec for f and prefixes the payload
// with a single format byte.
func EncodeBody(r *codec.Registry, f Format, v any) ([]byte, error) {
	c, err := CodecFor(r, f)
	if err != nil {
		return nil, err
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(b))
	out[0] = byte(f)
	copy(out[1:], b)
	return out, nil
}

// DecodeBody decodes payload produced by EncodeBody into v.
func DecodeBody(r *codec.Registry, payload []byte, v any) (Format, error) {
	if len(payload) == 0 {
		return FormatUnknown, fmt.Errorf("empty payload")
	}
	f := Format(payload[0])
	c, err := CodecFor(r, f)
	if err != nil {
		return f, err
	}
	if err := c.Unmarshal(payload[1:], v); err != nil {
		return f, err
	}
	return f, nil
}
