// pkg/codec/jsoncodec.go
package codec

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Marshaler renders values as request-body fragments.
type Marshaler interface {
	Marshal(v any) ([]byte, error)
}

type jsonStrict struct{}

// JSONStrict encodes without HTML escaping so URLs and angle brackets in
// payloads survive verbatim.
var JSONStrict Marshaler = jsonStrict{}

func (jsonStrict) Marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
