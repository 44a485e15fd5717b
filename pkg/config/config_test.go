package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OTP_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultMaxWorkers, cfg.Server.MaxWorkers)
	require.Equal(t, "tcp", cfg.Transport.Kind)
	require.Equal(t, "localhost", cfg.Client.Host)
	require.Equal(t, 5*time.Second, cfg.Client.DialTimeout)
	require.Equal(t, "cbor", cfg.Protocol.BodyFormat)
	require.Equal(t, []string{"stderr"}, cfg.Log.Outputs)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "otp.yaml")
	yaml := "transport:\n  kind: QUIC\nserver:\n  max_workers: 3\n  io_timeout: 2s\nprotocol:\n  body_format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("OTP_SERVER_MAX_WORKERS", "2")
	t.Setenv("OTP_CLIENT_HOST", "127.0.0.1")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "quic", cfg.Transport.Kind)
	require.Equal(t, 2, cfg.Server.MaxWorkers)
	require.Equal(t, 2*time.Second, cfg.Server.IOTimeout)
	require.Equal(t, "json", cfg.Protocol.BodyFormat)
	require.Equal(t, "127.0.0.1", cfg.Client.Host)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, yaml := range map[string]string{
		"workers":   "server:\n  max_workers: 0\n",
		"transport": "transport:\n  kind: udp\n",
		"format":    "protocol:\n  body_format: xml\n",
		"level":     "log:\n  level: loud\n",
	} {
		path := filepath.Join(t.TempDir(), "otp.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		_, err := Load(path)
		require.Error(t, err, name)
	}
}
