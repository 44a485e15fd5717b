package config

import "time"

// ServerConfig contains listener and admission options.
type ServerConfig struct {
	// ListenHost is joined with the port argument; empty binds all interfaces.
	ListenHost string `mapstructure:"listen_host"`
	// MaxWorkers bounds concurrently active sessions.
	MaxWorkers int `mapstructure:"max_workers"`
	// IOTimeout is a per-record read deadline; zero disables it.
	IOTimeout time.Duration `mapstructure:"io_timeout"`
}

// ClientConfig contains dialing options.
type ClientConfig struct {
	Host        string        `mapstructure:"host"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// ProtocolConfig controls record bodies.
type ProtocolConfig struct {
	// BodyFormat encodes abort reasons: cbor or json.
	BodyFormat string `mapstructure:"body_format"`
}
