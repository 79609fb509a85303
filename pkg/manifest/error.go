// pkg/manifest/error.go
package manifest

import "fmt"

// ValidationError identifies the manifest option that failed startup
// validation. Callers match it with errors.As.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest: %s: %s", e.Option, e.Reason)
}

func badOption(option, format string, args ...any) error {
	return &ValidationError{Option: option, Reason: fmt.Sprintf(format, args...)}
}
