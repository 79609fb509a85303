// pkg/codec/body.go
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

// ErrNullValue marks a record with no value; the pipeline decides whether
// that skips the record or fails the batch.
var ErrNullValue = errors.New("record value is null")

// ConversionError marks a value that cannot be rendered as a request body.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("value conversion: %s: %v", e.Reason, e.Err)
	}
	return "value conversion: " + e.Reason
}

func (e *ConversionError) Unwrap() error { return e.Err }

// BuildBody renders a record value as a UTF-8 JSON request body.
//
// Strings that already hold a JSON object or array pass through verbatim;
// everything else is wrapped as {"value": ...} so the body is always a
// well-formed JSON document.
func BuildBody(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, ErrNullValue
	case string:
		return stringBody(v)
	case []byte:
		if !utf8.Valid(v) {
			return nil, &ConversionError{Reason: "byte value is not valid UTF-8"}
		}
		return stringBody(string(v))
	case *record.Struct:
		if v == nil {
			return nil, ErrNullValue
		}
		return structBody(v)
	case record.Struct:
		return structBody(&v)
	case map[string]any:
		// Go maps carry no iteration order; keys encode sorted, which is
		// deterministic but not producer order. Order-sensitive values
		// must arrive as *record.Struct.
		b, err := JSONStrict.Marshal(v)
		if err != nil {
			return nil, &ConversionError{Reason: "map value", Err: err}
		}
		return b, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return wrapValue(v)
	default:
		// Unrecognized types fall back to their canonical text form.
		return stringBody(fmt.Sprintf("%v", v))
	}
}

func stringBody(s string) ([]byte, error) {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) > 0 && json.Valid(trimmed) {
		switch trimmed[0] {
		case '{', '[':
			return []byte(s), nil
		default:
			// JSON primitive: wrap the raw token
			var buf bytes.Buffer
			buf.WriteString(`{"value":`)
			buf.Write(trimmed)
			buf.WriteByte('}')
			return buf.Bytes(), nil
		}
	}
	return wrapValue(s)
}

func wrapValue(v any) ([]byte, error) {
	b, err := JSONStrict.Marshal(map[string]any{"value": v})
	if err != nil {
		return nil, &ConversionError{Reason: "primitive value", Err: err}
	}
	return b, nil
}

// structBody serializes a schema-described struct preserving field order
// and declared widths. Timestamps render as epoch ms, bytes as base64.
func structBody(s *record.Struct) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := JSONStrict.Marshal(f.Name)
		if err != nil {
			return nil, &ConversionError{Reason: "struct field name " + f.Name, Err: err}
		}
		buf.Write(name)
		buf.WriteByte(':')
		enc, err := structField(f)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func structField(f record.Field) ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	switch f.Type {
	case record.TypeTimestamp:
		switch t := f.Value.(type) {
		case time.Time:
			return []byte(fmt.Sprintf("%d", t.UnixMilli())), nil
		case int64:
			return []byte(fmt.Sprintf("%d", t)), nil
		default:
			return nil, &ConversionError{Reason: fmt.Sprintf("timestamp field %s holds %T", f.Name, f.Value)}
		}
	case record.TypeBytes:
		b, ok := f.Value.([]byte)
		if !ok {
			return nil, &ConversionError{Reason: fmt.Sprintf("bytes field %s holds %T", f.Name, f.Value)}
		}
		return JSONStrict.Marshal(base64.StdEncoding.EncodeToString(b))
	case record.TypeStruct:
		nested, ok := f.Value.(*record.Struct)
		if !ok {
			return nil, &ConversionError{Reason: fmt.Sprintf("struct field %s holds %T", f.Name, f.Value)}
		}
		return structBody(nested)
	default:
		enc, err := JSONStrict.Marshal(f.Value)
		if err != nil {
			return nil, &ConversionError{Reason: "struct field " + f.Name, Err: err}
		}
		return enc, nil
	}
}
