package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

func testPolicy() Policy {
	return FromManifest(manifest.Retry{
		MaxAttempts:        3,
		BackoffInitialMS:   10,
		BackoffMaxMS:       60000,
		BackoffMultiplier:  2.0,
		RetryOnStatusCodes: []int{429, 500, 502, 503, 504},
	})
}

func TestRetryableStatus(t *testing.T) {
	p := testPolicy()
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !p.RetryableStatus(code) {
			t.Errorf("RetryableStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 404, 501} {
		if p.RetryableStatus(code) {
			t.Errorf("RetryableStatus(%d) = true, want false", code)
		}
	}
}

func TestRetryableError(t *testing.T) {
	p := testPolicy()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net error", &net.DNSError{Err: "no such host"}, true},
		{"wrapped net error", fmt.Errorf("execute: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"plain error", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.RetryableError(tt.err); got != tt.want {
				t.Errorf("RetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHasMoreAttempts(t *testing.T) {
	p := testPolicy()
	if !p.HasMoreAttempts(0) || !p.HasMoreAttempts(1) {
		t.Error("attempts 0 and 1 should allow another attempt with max 3")
	}
	if p.HasMoreAttempts(2) {
		t.Error("attempt 2 is the last with max 3")
	}

	off := false
	disabled := FromManifest(manifest.Retry{Enabled: &off, MaxAttempts: 3})
	if disabled.HasMoreAttempts(0) {
		t.Error("disabled policy must allow exactly one attempt")
	}
}

func TestDelayMS(t *testing.T) {
	p := testPolicy()
	want := []int64{10, 20, 40, 80}
	for attempt, w := range want {
		if got := p.DelayMS(attempt); got != w {
			t.Errorf("DelayMS(%d) = %d, want %d", attempt, got, w)
		}
	}

	capped := FromManifest(manifest.Retry{
		MaxAttempts:       10,
		BackoffInitialMS:  1000,
		BackoffMaxMS:      4000,
		BackoffMultiplier: 2.0,
	})
	if got := capped.DelayMS(5); got != 4000 {
		t.Errorf("DelayMS(5) = %d, want cap 4000", got)
	}
}
