package cipher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexSymbolBijection(t *testing.T) {
	for i := 0; i < Size; i++ {
		b := Symbol(i)
		got, ok := Index(b)
		require.True(t, ok)
		require.Equal(t, i, got)
	}
	require.Equal(t, byte(' '), Symbol(26))
	require.Equal(t, byte('A'), Symbol(27))
	require.Equal(t, byte(' '), Symbol(-1))
}

func TestNonMembers(t *testing.T) {
	for _, b := range []byte{'a', 'z', '\n', '@', '[', 0, 0xff} {
		require.False(t, IsMember(b), "%q", b)
	}
}

func TestInvertibilityAndClosure(t *testing.T) {
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			d, k := Alphabet[i], Alphabet[j]
			c, err := Forward(d, k)
			require.NoError(t, err)
			require.True(t, IsMember(c))
			p, err := Inverse(c, k)
			require.NoError(t, err)
			require.True(t, IsMember(p))
			require.Equal(t, d, p)
		}
	}
}

func TestForwardKnownValues(t *testing.T) {
	c, err := Forward('A', 'A')
	require.NoError(t, err)
	require.Equal(t, byte('A'), c)

	c, err = Forward(' ', 'B')
	require.NoError(t, err)
	require.Equal(t, byte('A'), c)

	c, err = Forward('Z', 'B')
	require.NoError(t, err)
	require.Equal(t, byte(' '), c)
}

func TestForwardRejectsOutsideAlphabet(t *testing.T) {
	_, err := Forward('h', 'A')
	var ae *AlphabetError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, StreamData, ae.Stream)

	_, err = Inverse('H', '\n')
	require.True(t, errors.As(err, &ae))
	require.Equal(t, StreamKey, ae.Stream)
}

func TestApplyRoundTrip(t *testing.T) {
	data := []byte("HELLO WORLD")
	key := []byte("XMCKL QWERTYZ")
	enc, err := Apply(Encrypt, data, key)
	require.NoError(t, err)
	require.Len(t, enc, len(data))
	require.NotEqual(t, data, enc)

	dec, err := Apply(Decrypt, enc, key)
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestApplyReportsOffset(t *testing.T) {
	_, err := Apply(Encrypt, []byte("ABcD"), []byte("AAAA"))
	var ae *AlphabetError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, 2, ae.Offset)
	require.Equal(t, byte('c'), ae.Byte)
}

func TestApplyShortKey(t *testing.T) {
	_, err := Apply(Encrypt, []byte("ABC"), []byte("AB"))
	require.Error(t, err)
}
