// pkg/manifest/validate_http.go
package manifest

import (
	"net/url"
	"strings"
)

func (c *Config) validateEndpoint() error {
	e := &c.Endpoint

	u := strings.TrimSpace(e.URL)
	if u == "" {
		return badOption("endpoint.url", "required")
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return badOption("endpoint.url", "not an absolute http(s) URL: %q", e.URL)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return badOption("endpoint.url", "scheme %q unsupported (http|https)", parsed.Scheme)
	}

	if strings.TrimSpace(e.Method) == "" {
		e.Method = "POST"
	} else {
		e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
		switch e.Method {
		case "POST", "PUT", "DELETE":
		default:
			return badOption("endpoint.method", "%q invalid (POST|PUT|DELETE)", e.Method)
		}
	}

	if e.ConnectTimeoutMS == 0 {
		e.ConnectTimeoutMS = 5000
	}
	if e.ConnectTimeoutMS < 1000 {
		return badOption("endpoint.connect_timeout_ms", "must be >= 1000")
	}
	if e.RequestTimeoutMS == 0 {
		e.RequestTimeoutMS = 30000
	}
	if e.RequestTimeoutMS < 1000 {
		return badOption("endpoint.request_timeout_ms", "must be >= 1000")
	}

	if e.MaxConnectionsPerHost == 0 {
		e.MaxConnectionsPerHost = 20
	}
	if e.MaxConnectionsTotal == 0 {
		e.MaxConnectionsTotal = 100
	}
	if e.MaxConnectionsPerHost < 0 || e.MaxConnectionsTotal < 0 {
		return badOption("endpoint.max_connections", "must be >= 0")
	}
	if e.MaxConnectionsTotal < e.MaxConnectionsPerHost {
		return badOption("endpoint.max_connections_total", "must be >= max_connections_per_host")
	}
	return nil
}

func (c *Config) validateAuth() error {
	a := &c.Auth

	if strings.TrimSpace(a.Type) == "" {
		a.Type = "none"
	} else {
		a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	}

	switch a.Type {
	case "none":

	case "basic":
		if a.Basic == nil {
			return badOption("auth.basic", "block required for type 'basic'")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return badOption("auth.basic", "username and password required")
		}

	case "bearer":
		if a.Bearer == nil || strings.TrimSpace(a.Bearer.Token) == "" {
			return badOption("auth.bearer.token", "required for type 'bearer'")
		}

	case "apikey":
		if a.APIKey == nil {
			return badOption("auth.apikey", "block required for type 'apikey'")
		}
		k := a.APIKey
		if strings.TrimSpace(k.Location) == "" {
			k.Location = "header"
		} else {
			k.Location = strings.ToLower(strings.TrimSpace(k.Location))
			if k.Location != "header" && k.Location != "query" {
				return badOption("auth.apikey.location", "%q invalid (header|query)", k.Location)
			}
		}
		if strings.TrimSpace(k.Name) == "" || k.Value == "" {
			return badOption("auth.apikey", "name and value required")
		}

	case "oauth2":
		if a.OAuth2 == nil {
			return badOption("auth.oauth2", "block required for type 'oauth2'")
		}
		o := a.OAuth2
		if strings.TrimSpace(o.TokenURL) == "" || strings.TrimSpace(o.ClientID) == "" || o.ClientSecret == "" {
			return badOption("auth.oauth2", "token_url, client_id, and client_secret required")
		}
		if u, err := url.Parse(o.TokenURL); err != nil || u.Scheme == "" || u.Host == "" {
			return badOption("auth.oauth2.token_url", "not an absolute URL: %q", o.TokenURL)
		}
		if o.ExpiryBufferSeconds == 0 {
			o.ExpiryBufferSeconds = 300
		}
		if o.ExpiryBufferSeconds < 0 {
			return badOption("auth.oauth2.expiry_buffer_seconds", "must be >= 0")
		}
		if o.RequestTimeoutMS == 0 {
			o.RequestTimeoutMS = 10000
		}
		if o.RequestTimeoutMS < 1000 {
			return badOption("auth.oauth2.request_timeout_ms", "must be >= 1000")
		}

	default:
		return badOption("auth.type", "%q invalid (none|basic|bearer|apikey|oauth2)", a.Type)
	}
	return nil
}

func (c *Config) validateForward() error {
	f := &c.Forward
	for name := range f.Static {
		if strings.TrimSpace(name) == "" {
			return badOption("forward.static", "empty header name")
		}
	}
	return nil
}
