package session

import (
	"fmt"

	"otp/pkg/cipher"
)

// Role names one endpoint of a pairing. Its string form is the identity
// token sent during the handshake.
type Role string

const (
	EncClient Role = "enc_client"
	EncServer Role = "enc_server"
	DecClient Role = "dec_client"
	DecServer Role = "dec_server"
)

// ParseRole accepts one of the four role tokens.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case EncClient, EncServer, DecClient, DecServer:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Token is the identity payload for r.
func (r Role) Token() []byte { return []byte(r) }

// Peer is the role r expects on the other end of the connection.
func (r Role) Peer() Role {
	switch r {
	case EncClient:
		return EncServer
	case EncServer:
		return EncClient
	case DecClient:
		return DecServer
	case DecServer:
		return DecClient
	}
	return ""
}

// IsServer reports whether r is one of the server roles.
func (r Role) IsServer() bool { return r == EncServer || r == DecServer }

// Direction is the transform the pairing applies to data chunks.
func (r Role) Direction() cipher.Direction {
	if r == DecClient || r == DecServer {
		return cipher.Decrypt
	}
	return cipher.Encrypt
}
