// Package transports maps configured transport names onto implementations.
package transports

import (
	"fmt"
	"strings"

	"otp/pkg/transport"
	"otp/pkg/transport/mem"
	"otp/pkg/transport/quic"
	"otp/pkg/transport/tcp"
)

// ErrUnknownKind is returned for a transport name with no implementation.
type ErrUnknownKind struct{ Name string }

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown transport %q (want tcp, quic or mem)", e.Name)
}

// ParseKind converts a configured name into a transport.Kind. An empty name selects tcp.
func ParseKind(name string) (transport.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tcp":
		return transport.KindTCP, nil
	case "quic":
		return transport.KindQUIC, nil
	case "mem":
		return transport.KindMem, nil
	default:
		return transport.KindUnknown, ErrUnknownKind{Name: name}
	}
}

// NewByKind builds the transport selected by name.
func NewByKind(name string) (transport.Transport, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	switch k {
	case transport.KindQUIC:
		return quic.New()
	case transport.KindMem:
		return mem.New(), nil
	default:
		return tcp.New(), nil
	}
}
