// pkg/auth/oauth2.go
package auth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

// OAuth2Provider implements the client-credentials grant with a cached
// token. It owns its own HTTP client so token traffic never shares the
// forwarding client's timeouts or retry loop.
type OAuth2Provider struct {
	cfg manifest.OAuth2Auth
	log *zap.Logger
	hc  HTTPDoer
	now func() time.Time

	mu     sync.Mutex
	token  string
	expiry int64 // epoch ms; token is unusable at or past this instant
}

func NewOAuth2Provider(cfg manifest.OAuth2Auth, log *zap.Logger) *OAuth2Provider {
	return &OAuth2Provider{
		cfg: cfg,
		log: log,
		hc: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		},
		now: time.Now,
	}
}

// Materialize returns a Bearer header backed by a token that outlives
// now + expiry_buffer_seconds. Stale tokens are refreshed under the
// provider lock; concurrent callers wait on the in-flight refresh. When
// that refresh fails, a cached token that has not yet expired is returned
// even though it is inside the buffer.
func (p *OAuth2Provider) Materialize(ctx context.Context) (Credentials, error) {
	tok, err := p.ensureFresh(ctx)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Headers: map[string]string{"Authorization": "Bearer " + tok}}, nil
}

// Refresh unconditionally fetches a token. Called once at task start so a
// broken token endpoint fails startup instead of the first record.
func (p *OAuth2Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	tok, expiry, err := p.fetchToken(ctx)
	if err != nil {
		return &Error{Reason: "token fetch", Err: err}
	}
	p.token, p.expiry = tok, expiry
	return nil
}

func (p *OAuth2Provider) ensureFresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nowMS := p.now().UnixMilli()
	if p.token != "" && nowMS+int64(p.cfg.ExpiryBufferSeconds)*1000 < p.expiry {
		return p.token, nil
	}

	tok, expiry, err := p.fetchToken(ctx)
	if err != nil {
		// A still-valid cached token degrades silently for the grace window.
		if p.token != "" && nowMS < p.expiry {
			p.log.Warn("token refresh failed, serving cached token", zap.Error(err))
			return p.token, nil
		}
		return "", &Error{Reason: "token refresh", Err: err}
	}
	p.token, p.expiry = tok, expiry
	return tok, nil
}

func (p *OAuth2Provider) fetchToken(ctx context.Context) (string, int64, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	if p.cfg.Scope != "" {
		form.Set("scope", p.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.hc.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, &Error{Reason: "token endpoint status " + resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, err
	}
	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   *int64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, &Error{Reason: "token response decode", Err: err}
	}
	if tr.AccessToken == "" {
		return "", 0, &Error{Reason: "token response missing access_token"}
	}

	expiresIn := int64(3600)
	if tr.ExpiresIn != nil {
		expiresIn = *tr.ExpiresIn
	}
	return tr.AccessToken, p.now().UnixMilli() + expiresIn*1000, nil
}
