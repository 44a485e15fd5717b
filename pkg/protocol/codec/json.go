package codec

import (
	"encoding/json"
	"fmt"
)

type jsonCodec struct{}

// JSON returns the readable abort body codec. Field order follows the Go
// struct, which keeps output stable.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string           { return "application/json" }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("abort body: %w", err)
	}
	return nil
}
