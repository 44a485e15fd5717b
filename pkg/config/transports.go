package config

// TransportConfig selects the stream transport shared by servers and clients.
// Example YAML:
// transport:
//   kind: quic
type TransportConfig struct {
	// Kind: tcp or quic. mem is in-process only and is refused by the binaries.
	Kind string `mapstructure:"kind"`
}
