package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"otp/pkg/cipher"
	"otp/pkg/session"
	"otp/pkg/transport"
	"otp/pkg/transport/mem"
	"otp/pkg/transport/tcp"
)

func start(t *testing.T, cfg Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	srv, err := New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("serve: %v", err)
	}
	t.Cleanup(cancel)
	return srv, cancel, done
}

func connect(t *testing.T, tr transport.Transport, addr string, role session.Role) *session.Client {
	t.Helper()
	ctx := context.Background()
	sess, err := tr.Dial(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	st, err := sess.OpenStream(ctx)
	require.NoError(t, err)
	cl, err := session.NewClient(st, role, session.Options{})
	require.NoError(t, err)
	return cl
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Role: session.EncClient, Transport: mem.New()})
	require.Error(t, err)
	_, err = New(Config{Role: session.EncServer})
	require.Error(t, err)

	srv, err := New(Config{Role: session.DecServer, Transport: mem.New()})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxWorkers, srv.Stats().MaxWorkers)
}

func TestCapacityQueuesExtraConnection(t *testing.T) {
	tr := mem.New()
	srv, _, _ := start(t, Config{Role: session.EncServer, Transport: tr, Addr: "enc", MaxWorkers: 2})

	a := connect(t, tr, "enc", session.EncClient)
	require.NoError(t, a.Handshake())
	b := connect(t, tr, "enc", session.EncClient)
	require.NoError(t, b.Handshake())
	require.Eventually(t, func() bool { return srv.Stats().Active == 2 }, time.Second, 10*time.Millisecond)

	c := connect(t, tr, "enc", session.EncClient)
	handshaken := make(chan error, 1)
	go func() { handshaken <- c.Handshake() }()

	require.Eventually(t, func() bool { return srv.Stats().Waiting == 1 }, time.Second, 10*time.Millisecond)
	select {
	case err := <-handshaken:
		t.Fatalf("third handshake completed while at capacity: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, a.Finish())
	select {
	case err := <-handshaken:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued connection was never admitted")
	}

	out, err := c.Exchange([]byte("ABC"), []byte("BBB"))
	require.NoError(t, err)
	require.Equal(t, "BCD", string(out))
	require.NoError(t, b.Finish())
	require.NoError(t, c.Finish())
	require.Eventually(t, func() bool {
		st := srv.Stats()
		return st.Active == 0 && st.Finished == 3 && st.Failed == 0
	}, time.Second, 10*time.Millisecond)
}

func TestFailedWorkerReleasesSlot(t *testing.T) {
	tr := mem.New()
	srv, _, _ := start(t, Config{Role: session.EncServer, Transport: tr, Addr: "enc", MaxWorkers: 1})

	bad := connect(t, tr, "enc", session.DecClient)
	var ae *session.AuthError
	require.ErrorAs(t, bad.Handshake(), &ae)

	good := connect(t, tr, "enc", session.EncClient)
	require.NoError(t, good.Handshake())
	require.NoError(t, good.Finish())
	require.Eventually(t, func() bool {
		st := srv.Stats()
		return st.Finished == 2 && st.Failed == 1 && st.Active == 0
	}, time.Second, 10*time.Millisecond)
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	tr := mem.New()
	_, cancel, done := start(t, Config{Role: session.DecServer, Transport: tr, Addr: "dec"})

	cl := connect(t, tr, "dec", session.DecClient)
	require.NoError(t, cl.Handshake())
	cancel()

	select {
	case err := <-done:
		t.Fatalf("serve returned with a session in flight: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	out, err := cl.Exchange([]byte("B"), []byte("B"))
	require.NoError(t, err)
	require.Equal(t, "A", string(out))
	require.NoError(t, cl.Finish())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the last session ended")
	}
}

func TestTCPEncryptDecrypt(t *testing.T) {
	tr := tcp.New()
	enc, _, _ := start(t, Config{Role: session.EncServer, Transport: tr, Addr: "127.0.0.1:0"})
	dec, _, _ := start(t, Config{Role: session.DecServer, Transport: tr, Addr: "127.0.0.1:0"})

	key := []byte("QWERTYUIOPASDFG")
	cl := connect(t, tr, enc.Addr().String(), session.EncClient)
	require.NoError(t, cl.Handshake())
	ct, err := cl.Exchange([]byte("HELLO WORLD"), key)
	require.NoError(t, err)
	ct = append([]byte(nil), ct...)
	require.NoError(t, cl.Finish())

	cl = connect(t, tr, dec.Addr().String(), session.DecClient)
	require.NoError(t, cl.Handshake())
	pt, err := cl.Exchange(ct, key)
	require.NoError(t, err)
	require.Equal(t, "HELLO WORLD", string(pt))
	require.NoError(t, cl.Finish())
}

func TestConcurrentClients(t *testing.T) {
	tr := tcp.New()
	srv, _, _ := start(t, Config{Role: session.EncServer, Transport: tr, Addr: "127.0.0.1:0", MaxWorkers: 2})
	addr := srv.Addr().String()

	var g errgroup.Group
	const clients = 6
	for i := 0; i < clients; i++ {
		data := []byte(strings.Repeat(string(cipher.Symbol(i)), 40))
		key := []byte(strings.Repeat("B", 40))
		g.Go(func() error {
			sess, err := tr.Dial(context.Background(), addr)
			if err != nil {
				return err
			}
			defer sess.Close()
			st, err := sess.OpenStream(context.Background())
			if err != nil {
				return err
			}
			cl, err := session.NewClient(st, session.EncClient, session.Options{})
			if err != nil {
				return err
			}
			if err := cl.Handshake(); err != nil {
				return err
			}
			for round := 0; round < 3; round++ {
				out, err := cl.Exchange(data, key)
				if err != nil {
					return err
				}
				want, _ := cipher.Apply(cipher.Encrypt, data, key)
				if string(out) != string(want) {
					return fmt.Errorf("client %d round %d: got %q", i, round, out)
				}
			}
			return cl.Finish()
		})
	}
	require.NoError(t, g.Wait())
	require.Eventually(t, func() bool { return srv.Stats().Finished == clients }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, srv.Stats().Failed)
}

// stallTransport hands out sessions whose stream never opens, like a QUIC
// peer that connects and then stays silent.
type stallTransport struct {
	conns chan transport.Session
}

func (t *stallTransport) Kind() transport.Kind { return transport.KindQUIC }

func (t *stallTransport) Listen(context.Context, string) (transport.Listener, error) {
	return &stallListener{conns: t.conns, closed: make(chan struct{})}, nil
}

func (t *stallTransport) Dial(context.Context, string) (transport.Session, error) {
	return nil, fmt.Errorf("not supported")
}

type stallListener struct {
	conns  chan transport.Session
	once   sync.Once
	closed chan struct{}
}

func (l *stallListener) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrListenerClosed
	case s := <-l.conns:
		return s, nil
	}
}

func (l *stallListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func (l *stallListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

type stallSession struct{}

func (stallSession) TransportKind() transport.Kind { return transport.KindQUIC }
func (stallSession) LocalAddr() net.Addr           { return &net.TCPAddr{} }
func (stallSession) RemoteAddr() net.Addr          { return &net.TCPAddr{} }
func (stallSession) Close() error                  { return nil }

func (stallSession) OpenStream(ctx context.Context) (transport.Stream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSilentPeerReleasesSlotAfterIOTimeout(t *testing.T) {
	tr := &stallTransport{conns: make(chan transport.Session)}
	srv, _, _ := start(t, Config{Role: session.EncServer, Transport: tr, MaxWorkers: 1, IOTimeout: 50 * time.Millisecond})

	for i := 0; i < 2; i++ {
		select {
		case tr.conns <- stallSession{}:
		case <-time.After(2 * time.Second):
			t.Fatal("connection was not accepted")
		}
	}
	require.Eventually(t, func() bool {
		st := srv.Stats()
		return st.Active == 0 && st.Finished == 2 && st.Failed == 2
	}, 2*time.Second, 10*time.Millisecond)
}
