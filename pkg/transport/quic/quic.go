package quic

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"math/big"
	"net"
	"sync"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"otp/pkg/transport"
)

const alpn = "otp"

// closeGrace is how long Close waits for the peer to drain the stream before
// tearing down the connection.
const closeGrace = 250 * time.Millisecond

// Transport implements QUIC-based sessions with length-prefixed frames on a
// single bidirectional stream (opened by the dialer, accepted by the listener).
type Transport struct {
	tlsConf  *tls.Config
	quicConf *quicgo.Config
}

func New() (*Transport, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, err
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpn},
		MinVersion:   tls.VersionTLS13,
	}
	return &Transport{tlsConf: tlsConf, quicConf: &quicgo.Config{}}, nil
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
	l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
	if err != nil {
		return nil, err
	}
	ql := &listener{l: l, closeCh: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = ql.Close()
		case <-ql.closeCh:
		}
	}()
	return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Session, error) {
	// Peers identify each other with role tokens after connecting; the
	// certificate is self-signed and not verified.
	tlsClient := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpn},
		MinVersion:         tls.VersionTLS13,
	}
	c, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
	if err != nil {
		return nil, err
	}
	return &session{c: c}, nil
}

// ---- Listener ----

type listener struct {
	l       *quicgo.Listener
	once    sync.Once
	closeCh chan struct{}
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
	c, err := l.l.Accept(ctx)
	if err != nil {
		select {
		case <-l.closeCh:
			return nil, transport.ErrListenerClosed
		default:
		}
		return nil, err
	}
	return &session{c: c, inbound: true}, nil
}

func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closeCh)
		err = l.l.Close()
	})
	return err
}

// ---- Session/Streams ----

type session struct {
	c       *quicgo.Conn
	inbound bool

	mu sync.Mutex
	st *qstream
}

func (s *session) TransportKind() transport.Kind { return transport.KindQUIC }
func (s *session) LocalAddr() net.Addr           { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr          { return s.c.RemoteAddr() }

// OpenStream accepts the peer's stream on the listening side and opens one
// on the dialing side. A dialed stream becomes visible to the listener with
// its first frame.
func (s *session) OpenStream(ctx context.Context) (transport.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != nil {
		return s.st, nil
	}
	var (
		qs  *quicgo.Stream
		err error
	)
	if s.inbound {
		qs, err = s.c.AcceptStream(ctx)
	} else {
		qs, err = s.c.OpenStreamSync(ctx)
	}
	if err != nil {
		return nil, err
	}
	s.st = &qstream{s: qs, br: bufio.NewReader(qs)}
	return s.st, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if st != nil {
		_ = st.Close()
		select {
		case <-s.c.Context().Done():
		case <-time.After(closeGrace):
		}
	}
	err := s.c.CloseWithError(0, "")
	var appErr *quicgo.ApplicationError
	if errors.As(err, &appErr) {
		return nil
	}
	return err
}

// qstream implements transport.Stream over a QUIC bidirectional stream with u32 LE framing.
type qstream struct {
	mu sync.Mutex
	s  *quicgo.Stream
	br *bufio.Reader
}

func (st *qstream) SendBytes(b []byte) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return transport.WriteFrame(st.s, b)
}

func (st *qstream) RecvBytes() ([]byte, error) { return transport.ReadFrame(st.br) }

func (st *qstream) SetReadDeadline(t time.Time) error { return st.s.SetReadDeadline(t) }

// Close closes the write direction; the peer sees EOF after the last frame.
func (st *qstream) Close() error { return st.s.Close() }

// ---- Helpers ----

// selfSignedCert generates a short-lived self-signed TLS certificate for local QUIC use.
func selfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
