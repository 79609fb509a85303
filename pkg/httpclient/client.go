// pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

// Request is one outbound call, built fresh per record. Values are
// immutable; the pipeline rebuilds the request to rotate credentials
// between attempts.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the captured outcome of a single attempt. Status 0 never
// appears here; transport failures surface as errors.
type Response struct {
	Status    int
	Headers   map[string]string // last value wins per name
	Body      string
	ElapsedMS int64
}

// Success reports a 2xx status.
func (r Response) Success() bool { return r.Status >= 200 && r.Status < 300 }

// Client wraps a pooled net/http client. Safe for concurrent use; owned
// by the pipeline for the lifetime of the task.
type Client struct {
	hc *http.Client
}

func New(cfg manifest.Endpoint) *Client {
	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
		MaxConnsPerHost:     cfg.MaxConnectionsPerHost,
		MaxIdleConns:        cfg.MaxConnectionsTotal,
		MaxIdleConnsPerHost: cfg.MaxConnectionsPerHost,
		ForceAttemptHTTP2:   true,
	}
	return &Client{
		hc: &http.Client{
			Transport: transport,
			// One attempt's full round trip. Retries live in the pipeline,
			// never in the HTTP layer.
			Timeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		},
	}
}

// Execute performs one attempt and captures the response. A non-2xx
// status is a valid Response, not an error; errors mean the transport
// failed before a status line arrived.
func (c *Client) Execute(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	// DELETE omits the body when there is none to send.
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	for name, val := range req.Headers {
		httpReq.Header.Set(name, val)
	}
	if len(req.Body) > 0 && !hasHeader(req.Headers, "Content-Type") {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("execute %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	out := Response{
		Status:    resp.StatusCode,
		Headers:   make(map[string]string, len(resp.Header)),
		Body:      string(respBody),
		ElapsedMS: elapsed,
	}
	for name, vals := range resp.Header {
		if len(vals) > 0 {
			out.Headers[name] = vals[len(vals)-1]
		}
	}
	return out, nil
}

// Close evicts pooled connections. Called on task stop.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// AppendQuery adds parameters to a URL, preserving any existing query.
func AppendQuery(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("endpoint url: %w", err)
	}
	q := u.Query()
	for name, val := range params {
		q.Set(name, val)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
