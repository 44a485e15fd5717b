package client

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"otp/pkg/chunk"
	"otp/pkg/cipher"
	"otp/pkg/server"
	"otp/pkg/session"
	"otp/pkg/transport"
	"otp/pkg/transport/mem"
	"otp/pkg/transport/tcp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func serve(t *testing.T, tr transport.Transport, role session.Role, addr string) {
	t.Helper()
	srv, err := server.New(server.Config{Role: role, Transport: tr, Addr: addr})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	<-srv.Ready()
}

func driver(t *testing.T, tr transport.Transport, role session.Role, addr string) *Driver {
	t.Helper()
	d, err := New(Config{Role: role, Transport: tr, Addr: addr, DialTimeout: time.Second})
	require.NoError(t, err)
	return d
}

// randomKey builds an alphabet-only key deterministic enough for tests.
func randomKey(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(cipher.Symbol(i*7 + 3))
	}
	return b.String()
}

func TestEncryptDecryptFiles(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")
	serve(t, tr, session.DecServer, "dec")

	plain := writeFile(t, "plaintext", "HELLO WORLD\n")
	key := writeFile(t, "key", randomKey(20)+"\n")

	var ct bytes.Buffer
	require.NoError(t, driver(t, tr, session.EncClient, "enc").RunFiles(context.Background(), plain, key, &ct))
	require.Len(t, ct.String(), len("HELLO WORLD\n"))
	require.True(t, strings.HasSuffix(ct.String(), "\n"))
	require.NotEqual(t, "HELLO WORLD\n", ct.String())

	ctPath := writeFile(t, "ciphertext", ct.String())
	var pt bytes.Buffer
	require.NoError(t, driver(t, tr, session.DecClient, "dec").RunFiles(context.Background(), ctPath, key, &pt))
	require.Equal(t, "HELLO WORLD\n", pt.String())
}

func TestMultiChunkRoundTrip(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")
	serve(t, tr, session.DecServer, "dec")

	msg := strings.Repeat("THE QUICK BROWN FOX ", 40)[:3*chunk.Capacity+17]
	key := randomKey(len(msg) + 5)

	var ct bytes.Buffer
	w := bufio.NewWriter(&ct)
	require.NoError(t, driver(t, tr, session.EncClient, "enc").Run(context.Background(),
		strings.NewReader(msg+"\n"), strings.NewReader(key+"\n"), w))
	require.Len(t, ct.String(), len(msg)+1)

	var pt bytes.Buffer
	require.NoError(t, driver(t, tr, session.DecClient, "dec").Run(context.Background(),
		strings.NewReader(ct.String()), strings.NewReader(key+"\n"), &pt))
	require.Equal(t, msg+"\n", pt.String())
}

func TestCheckFiles(t *testing.T) {
	data := writeFile(t, "data", "HELLO WORLD\n")
	short := writeFile(t, "short", "ABC\n")
	long := writeFile(t, "long", randomKey(30)+"\n")

	require.NoError(t, CheckFiles(data, long))
	require.NoError(t, CheckFiles(data, writeFile(t, "equal", randomKey(11)+"\n")))

	var oneShort *session.LengthError
	require.ErrorAs(t, CheckFiles(data, writeFile(t, "one-short", randomKey(11))), &oneShort)
	require.EqualValues(t, 12, oneShort.Need)
	require.EqualValues(t, 11, oneShort.Have)

	var le *session.LengthError
	require.ErrorAs(t, CheckFiles(data, short), &le)
	require.Equal(t, short, le.Resource)
	require.EqualValues(t, 12, le.Need)
	require.EqualValues(t, 4, le.Have)

	var fe *FileError
	require.ErrorAs(t, CheckFiles(filepath.Join(t.TempDir(), "missing"), long), &fe)
	require.ErrorIs(t, fe, os.ErrNotExist)
}

func TestKeyExactlyAsLongAsData(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")
	serve(t, tr, session.DecServer, "dec")

	for name, nl := range map[string]string{"newline": "\n", "no newline": ""} {
		t.Run(name, func(t *testing.T) {
			keyText := randomKey(11)
			plain := writeFile(t, "plaintext", "HELLO WORLD"+nl)
			key := writeFile(t, "key", keyText+nl)

			var ct bytes.Buffer
			require.NoError(t, driver(t, tr, session.EncClient, "enc").RunFiles(context.Background(), plain, key, &ct))
			want, err := cipher.Apply(cipher.Encrypt, []byte("HELLO WORLD"), []byte(keyText))
			require.NoError(t, err)
			require.Equal(t, string(want)+"\n", ct.String())

			// keep the ciphertext file the same size as the key file
			ctPath := writeFile(t, "ciphertext", string(want)+nl)
			var pt bytes.Buffer
			require.NoError(t, driver(t, tr, session.DecClient, "dec").RunFiles(context.Background(), ctPath, key, &pt))
			require.Equal(t, "HELLO WORLD\n", pt.String())
		})
	}
}

func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestShortKeyFailsBeforeConnecting(t *testing.T) {
	data := writeFile(t, "data", "HELLO WORLD\n")
	key := writeFile(t, "key", "ABC\n")
	d := driver(t, tcp.New(), session.DecClient, closedPort(t))

	var out bytes.Buffer
	err := d.RunFiles(context.Background(), data, key, &out)
	var le *session.LengthError
	require.ErrorAs(t, err, &le)
	require.Zero(t, out.Len())
}

func TestConnectError(t *testing.T) {
	d := driver(t, tcp.New(), session.DecClient, closedPort(t))
	err := d.Run(context.Background(), strings.NewReader("A"), strings.NewReader("A"), &bytes.Buffer{})
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "dec_server", ce.Service)
}

func TestWrongServer(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")

	var out bytes.Buffer
	err := driver(t, tr, session.DecClient, "enc").Run(context.Background(),
		strings.NewReader("HELLO\n"), strings.NewReader("ABCDE\n"), &out)
	var ae *session.AuthError
	require.ErrorAs(t, err, &ae)
	require.Zero(t, out.Len())
}

func TestBadDataCharacter(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")

	var out bytes.Buffer
	err := driver(t, tr, session.EncClient, "enc").Run(context.Background(),
		strings.NewReader("HELLO world\n"), strings.NewReader(randomKey(12)), &out)
	var ae *cipher.AlphabetError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, cipher.StreamData, ae.Stream)
	require.Equal(t, 6, ae.Offset)
	require.Zero(t, out.Len())
}

func TestKeyRunsOutMidStream(t *testing.T) {
	tr := mem.New()
	serve(t, tr, session.EncServer, "enc")

	msg := strings.Repeat("A", 300)
	var out bytes.Buffer
	err := driver(t, tr, session.EncClient, "enc").Run(context.Background(),
		strings.NewReader(msg), strings.NewReader(randomKey(280)), &out)
	var le *session.LengthError
	require.ErrorAs(t, err, &le)
	require.EqualValues(t, 300, le.Need)
	require.EqualValues(t, 280, le.Have)
	require.Equal(t, chunk.Capacity, out.Len())
}

func TestNewRejectsServerRole(t *testing.T) {
	_, err := New(Config{Role: session.EncServer, Transport: mem.New()})
	require.Error(t, err)
}
