// pkg/retry/retry.go
package retry

import (
	"context"
	"errors"
	"io"
	"math"
	"net"

	"github.com/joeydtaylor/steeze-httpsink/pkg/auth"
	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

// Policy is a stateless retry decision function. The pipeline owns the
// attempt counter and performs the sleeps; the policy only answers
// whether and how long.
type Policy struct {
	Enabled     bool
	MaxAttempts int
	InitialMS   int64
	MaxMS       int64
	Multiplier  float64
	statusCodes map[int]struct{}
}

func FromManifest(r manifest.Retry) Policy {
	codes := make(map[int]struct{}, len(r.RetryOnStatusCodes))
	for _, c := range r.RetryOnStatusCodes {
		codes[c] = struct{}{}
	}
	return Policy{
		Enabled:     r.IsEnabled(),
		MaxAttempts: r.MaxAttempts,
		InitialMS:   r.BackoffInitialMS,
		MaxMS:       r.BackoffMaxMS,
		Multiplier:  r.BackoffMultiplier,
		statusCodes: codes,
	}
}

// RetryableStatus reports whether the status code is in the retry set.
func (p Policy) RetryableStatus(status int) bool {
	_, ok := p.statusCodes[status]
	return ok
}

// RetryableError reports whether err (or any cause in its chain) is a
// transport, IO, or timeout fault. Authentication and conversion faults
// never match.
func (p Policy) RetryableError(err error) bool {
	if err == nil {
		return false
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// HasMoreAttempts reports whether another attempt may follow attempt
// (0-based). With retries disabled there is exactly one attempt.
func (p Policy) HasMoreAttempts(attempt int) bool {
	if !p.Enabled {
		return false
	}
	return attempt < p.MaxAttempts-1
}

// DelayMS is the backoff before attempt+1: min(max, initial * mult^attempt).
func (p Policy) DelayMS(attempt int) int64 {
	d := float64(p.InitialMS) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxMS) {
		return p.MaxMS
	}
	return int64(d)
}
