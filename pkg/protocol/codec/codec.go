// Package codec encodes the structured body of an abort. A Stop record that
// carries a body starts with one format byte; the rest is produced by one of
// the codecs here.
package codec

// Codec turns an abort body into bytes and back. Encoding must be stable
// so the same abort always produces the same record.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry holds the abort body codecs a peer is willing to read, keyed by
// content type.
type Registry struct{ byType map[string]Codec }

// NewRegistry returns a registry with JSON and CBOR. CBOR is left out if
// its modes fail to build; aborts then fall back to JSON.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	if c, err := CBOR(); err == nil {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the codec for c.ContentType().
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns the codec for contentType. A nil registry has none.
func (r *Registry) Get(contentType string) Codec {
	if r == nil {
		return nil
	}
	return r.byType[contentType]
}
