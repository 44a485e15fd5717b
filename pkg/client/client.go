// Package client feeds data and key streams through a cipher server and
// writes the transformed result.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"otp/pkg/chunk"
	"otp/pkg/cipher"
	"otp/pkg/protocol"
	"otp/pkg/session"
	"otp/pkg/transport"
)

// Config describes the server a Driver talks to.
type Config struct {
	Role        session.Role
	Transport   transport.Transport
	Addr        string
	DialTimeout time.Duration
	// Format encodes abort bodies sent to the server.
	Format protocol.Format
}

// Driver runs one client session per call.
type Driver struct {
	cfg Config
}

func New(cfg Config) (*Driver, error) {
	if cfg.Role.IsServer() || cfg.Role.Peer() == "" {
		return nil, fmt.Errorf("%q is not a client role", cfg.Role)
	}
	if cfg.Transport == nil {
		return nil, errors.New("client: no transport")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Driver{cfg: cfg}, nil
}

// CheckFiles compares whole-file sizes before any connection is made. A key
// smaller than the data is a *session.LengthError naming the key file.
func CheckFiles(dataPath, keyPath string) error {
	di, err := os.Stat(dataPath)
	if err != nil {
		return &FileError{Path: dataPath, Err: err}
	}
	ki, err := os.Stat(keyPath)
	if err != nil {
		return &FileError{Path: keyPath, Err: err}
	}
	if ki.Size() < di.Size() {
		return &session.LengthError{Resource: keyPath, Need: di.Size(), Have: ki.Size()}
	}
	return nil
}

// RunFiles checks and opens both files, then runs the session.
func (d *Driver) RunFiles(ctx context.Context, dataPath, keyPath string, out io.Writer) error {
	if err := CheckFiles(dataPath, keyPath); err != nil {
		return err
	}
	df, err := os.Open(dataPath)
	if err != nil {
		return &FileError{Path: dataPath, Err: err}
	}
	defer df.Close()
	kf, err := os.Open(keyPath)
	if err != nil {
		return &FileError{Path: keyPath, Err: err}
	}
	defer kf.Close()
	return d.Run(ctx, df, kf, out)
}

type flusher interface{ Flush() error }

// Run connects, handshakes and exchanges aligned chunks of data and key until
// data is exhausted. Each result is written and flushed as it arrives; a
// single newline follows the last one.
func (d *Driver) Run(ctx context.Context, data, key io.Reader, out io.Writer) error {
	lg := zap.L().With(zap.String("role", string(d.cfg.Role)), zap.String("addr", d.cfg.Addr))

	dctx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	defer cancel()
	sess, err := d.cfg.Transport.Dial(dctx, d.cfg.Addr)
	if err != nil {
		return &ConnectError{Service: string(d.cfg.Role.Peer()), Addr: d.cfg.Addr, Err: err}
	}
	defer sess.Close()
	st, err := sess.OpenStream(dctx)
	if err != nil {
		return &ConnectError{Service: string(d.cfg.Role.Peer()), Addr: d.cfg.Addr, Err: err}
	}

	cl, err := session.NewClient(st, d.cfg.Role, session.Options{Format: d.cfg.Format, Logger: lg})
	if err != nil {
		return err
	}
	if err := cl.Handshake(); err != nil {
		return err
	}
	lg.Debug("connected", zap.Stringer("raddr", sess.RemoteAddr()))

	dr := chunk.NewReader(data, cipher.StreamData)
	kr := chunk.NewReader(key, cipher.StreamKey)
	for {
		dc, err := dr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cl.Abort(err)
			return err
		}
		kc, err := kr.Next()
		if errors.Is(err, io.EOF) {
			kc = nil
		} else if err != nil {
			cl.Abort(err)
			return err
		}
		if len(dc) == 0 {
			continue
		}
		res, err := cl.Exchange(dc, kc)
		if err != nil {
			return err
		}
		if err := emit(out, res); err != nil {
			cl.Abort(err)
			return err
		}
	}
	if err := emit(out, []byte("\n")); err != nil {
		cl.Abort(err)
		return err
	}
	lg.Debug("data exhausted", zap.Int64("bytes", dr.Consumed()))
	return cl.Finish()
}

func emit(out io.Writer, b []byte) error {
	if _, err := out.Write(b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if f, ok := out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	}
	return nil
}
