// pkg/headers/forward.go
package headers

import (
	"fmt"
	"strconv"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

// Rules filters, renames, and sanitizes record headers into HTTP headers.
type Rules struct {
	Enabled bool
	Include []string // globs; empty = all
	Exclude []string // globs
	Prefix  string
	Static  map[string]string
}

func FromManifest(f manifest.Forward) Rules {
	return Rules{
		Enabled: f.IsEnabled(),
		Include: f.Include,
		Exclude: f.Exclude,
		Prefix:  f.Prefix,
		Static:  f.Static,
	}
}

// Apply maps record headers to HTTP headers. Name collisions concatenate
// values with "," in arrival order; static entries merge last and win.
func (r Rules) Apply(hs []record.Header) map[string]string {
	out := map[string]string{}
	if r.Enabled {
		for _, h := range hs {
			if !r.selected(h.Key) {
				continue
			}
			val, ok := headerValue(h.Value)
			if !ok {
				continue
			}
			name := r.Prefix + Sanitize(h.Key)
			if prev, exists := out[name]; exists {
				out[name] = prev + "," + val
			} else {
				out[name] = val
			}
		}
	}
	for name, val := range r.Static {
		out[name] = val
	}
	return out
}

func (r Rules) selected(name string) bool {
	if len(r.Include) > 0 {
		hit := false
		for _, g := range r.Include {
			if matchGlob(g, name) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, g := range r.Exclude {
		if matchGlob(g, name) {
			return false
		}
	}
	return true
}

// Sanitize replaces every character outside [A-Za-z0-9._-] with '-' and
// prepends "X-" when the first character is not a letter.
func Sanitize(name string) string {
	b := []rune(name)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			b[i] = '-'
		}
	}
	s := string(b)
	if s == "" || !isLetter(s[0]) {
		s = "X-" + s
	}
	return s
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// headerValue renders a header value in its canonical text form.
// Null-valued headers are skipped.
func headerValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
