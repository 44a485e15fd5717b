package cipher

import "fmt"

// Stream names which input an AlphabetError came from.
type Stream string

const (
	StreamData Stream = "data"
	StreamKey  Stream = "key"
)

// AlphabetError reports a byte outside Alphabet.
type AlphabetError struct {
	Stream Stream
	Offset int
	Byte   byte
}

func (e *AlphabetError) Error() string {
	return fmt.Sprintf("%s contains bad character %q at offset %d", e.Stream, e.Byte, e.Offset)
}
