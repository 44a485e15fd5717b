// Package cipher implements the additive mod-27 transform over the
// uppercase-plus-space alphabet.
//
// The transform is a classic one-time-pad style rotation: it offers no
// confidentiality beyond what a key at least as long as the message gives.
package cipher

import "fmt"

// Alphabet is the ordered symbol set. A symbol's index is its position here.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ "

// Size is the number of symbols in Alphabet.
const Size = len(Alphabet)

// Index returns the position of b in Alphabet.
func Index(b byte) (int, bool) {
	switch {
	case b >= 'A' && b <= 'Z':
		return int(b - 'A'), true
	case b == ' ':
		return Size - 1, true
	default:
		return 0, false
	}
}

// Symbol returns the alphabet symbol at index i (taken mod Size).
func Symbol(i int) byte {
	i %= Size
	if i < 0 {
		i += Size
	}
	return Alphabet[i]
}

// IsMember reports whether b belongs to the alphabet.
func IsMember(b byte) bool {
	_, ok := Index(b)
	return ok
}

// Forward maps a data symbol and a key symbol to a cipher symbol.
func Forward(data, key byte) (byte, error) {
	d, ok := Index(data)
	if !ok {
		return 0, &AlphabetError{Stream: StreamData, Byte: data}
	}
	k, ok := Index(key)
	if !ok {
		return 0, &AlphabetError{Stream: StreamKey, Byte: key}
	}
	return Symbol(d + k), nil
}

// Inverse undoes Forward: Inverse(Forward(d, k), k) == d.
func Inverse(enc, key byte) (byte, error) {
	c, ok := Index(enc)
	if !ok {
		return 0, &AlphabetError{Stream: StreamData, Byte: enc}
	}
	k, ok := Index(key)
	if !ok {
		return 0, &AlphabetError{Stream: StreamKey, Byte: key}
	}
	return Symbol(c - k + Size), nil
}

// Direction selects which transform Apply runs.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Apply transforms data with the leading len(data) bytes of key.
// The key must be at least as long as data. On an invalid byte the returned
// AlphabetError carries the offset of the first offending position.
func Apply(dir Direction, data, key []byte) ([]byte, error) {
	if len(key) < len(data) {
		return nil, fmt.Errorf("key has %d symbols, data needs %d", len(key), len(data))
	}
	fn := Forward
	if dir == Decrypt {
		fn = Inverse
	}
	out := make([]byte, len(data))
	for i := range data {
		b, err := fn(data[i], key[i])
		if err != nil {
			if ae, ok := err.(*AlphabetError); ok {
				ae.Offset = i
			}
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
