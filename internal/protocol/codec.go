package protocol

import (
	"encoding/json"
	"fmt"
)

// CodecName is the name under which [Codec] is registered. It replaces the
// default protojson codec, so the content types are application/json and
// application/connect+json.
const CodecName = "json"

// Codec marshals the plain Go messages of the image service as JSON.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}

	return b, nil
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}

	return nil
}
