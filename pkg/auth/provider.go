// pkg/auth/provider.go
package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

// Credentials is the set of headers and query parameters a provider
// attaches to one outbound request.
type Credentials struct {
	Headers map[string]string
	Query   map[string]string
}

// Provider issues credentials for outbound requests. Materialize may
// refresh internally; Refresh forces acquisition and is called once at
// task start so misconfiguration fails before the first record.
type Provider interface {
	Materialize(ctx context.Context) (Credentials, error)
	Refresh(ctx context.Context) error
}

// Error is an authentication fault. Never retried by the attempt loop.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// FromManifest builds the provider selected by auth.type. The manifest is
// already validated; scheme blocks are present when their type is chosen.
func FromManifest(a manifest.Auth, log *zap.Logger) (Provider, error) {
	switch a.Type {
	case "none":
		return NoAuthProvider{}, nil
	case "basic":
		return BasicProvider{Username: a.Basic.Username, Password: a.Basic.Password}, nil
	case "bearer":
		return StaticBearerProvider{Token: a.Bearer.Token}, nil
	case "apikey":
		if a.APIKey.Location == "query" {
			return APIKeyQueryProvider{Name: a.APIKey.Name, Value: a.APIKey.Value}, nil
		}
		return APIKeyHeaderProvider{Name: a.APIKey.Name, Value: a.APIKey.Value}, nil
	case "oauth2":
		return NewOAuth2Provider(*a.OAuth2, log), nil
	default:
		return nil, fmt.Errorf("auth: unknown type %q", a.Type)
	}
}
