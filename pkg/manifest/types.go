// pkg/manifest/types.go
package manifest

// Endpoint is the HTTP destination every record is forwarded to.
type Endpoint struct {
	URL                   string `toml:"url"`
	Method                string `toml:"method"`                   // "POST"(default) | "PUT" | "DELETE"
	ConnectTimeoutMS      int    `toml:"connect_timeout_ms"`       // default: 5000, min 1000
	RequestTimeoutMS      int    `toml:"request_timeout_ms"`       // default: 30000, min 1000
	MaxConnectionsPerHost int    `toml:"max_connections_per_host"` // default: 20
	MaxConnectionsTotal   int    `toml:"max_connections_total"`    // default: 100
}

// Auth selects the credential scheme attached to each outbound request.
// The subtable matching Type must be present; other subtables are ignored.
type Auth struct {
	Type   string      `toml:"type"` // "none"(default) | "basic" | "bearer" | "apikey" | "oauth2"
	Basic  *BasicAuth  `toml:"basic"`
	Bearer *BearerAuth `toml:"bearer"`
	APIKey *APIKeyAuth `toml:"apikey"`
	OAuth2 *OAuth2Auth `toml:"oauth2"`
}

type BasicAuth struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type BearerAuth struct {
	Token string `toml:"token"`
}

type APIKeyAuth struct {
	Location string `toml:"location"` // "header"(default) | "query"
	Name     string `toml:"name"`
	Value    string `toml:"value"`
}

type OAuth2Auth struct {
	TokenURL            string `toml:"token_url"`
	ClientID            string `toml:"client_id"`
	ClientSecret        string `toml:"client_secret"`
	Scope               string `toml:"scope"`
	ExpiryBufferSeconds int    `toml:"expiry_buffer_seconds"` // default: 300
	RequestTimeoutMS    int    `toml:"request_timeout_ms"`    // token POST budget; default: 10000
}

// Forward controls record-header to HTTP-header forwarding.
type Forward struct {
	Enabled *bool             `toml:"enabled"` // default: true
	Include []string          `toml:"include"` // globs; empty = all
	Exclude []string          `toml:"exclude"` // globs
	Prefix  string            `toml:"prefix"`
	Static  map[string]string `toml:"static"` // merged last, wins on conflict
}

func (f Forward) IsEnabled() bool { return f.Enabled == nil || *f.Enabled }

// Response configures the durable response topic.
type Response struct {
	Enabled                bool     `toml:"enabled"`
	Topic                  string   `toml:"topic"` // template; ${topic} = source topic
	IncludeOriginalKey     *bool    `toml:"include_original_key"`     // default: true
	IncludeOriginalHeaders *bool    `toml:"include_original_headers"` // default: true
	OriginalHeadersInclude []string `toml:"original_headers_include"` // whitelist; empty = all
	IncludeRequestMetadata *bool    `toml:"include_request_metadata"` // default: true
	ValueFormat            string   `toml:"value_format"`             // "string"(default) | "json"
}

func (r Response) KeyIncluded() bool      { return r.IncludeOriginalKey == nil || *r.IncludeOriginalKey }
func (r Response) HeadersIncluded() bool  { return r.IncludeOriginalHeaders == nil || *r.IncludeOriginalHeaders }
func (r Response) MetadataIncluded() bool { return r.IncludeRequestMetadata == nil || *r.IncludeRequestMetadata }

// ErrorTopic configures the best-effort error topic.
type ErrorTopic struct {
	Enabled bool   `toml:"enabled"`
	Topic   string `toml:"topic"` // template; ${topic} = source topic
}

// Retry bounds the per-record HTTP attempt loop.
type Retry struct {
	Enabled            *bool   `toml:"enabled"`               // default: true
	MaxAttempts        int     `toml:"max_attempts"`          // default: 5
	BackoffInitialMS   int64   `toml:"backoff_initial_ms"`    // default: 1000
	BackoffMaxMS       int64   `toml:"backoff_max_ms"`        // default: 60000
	BackoffMultiplier  float64 `toml:"backoff_multiplier"`    // default: 2.0, min 1.0
	RetryOnStatusCodes []int   `toml:"retry_on_status_codes"` // default: 429,500,502,503,504
}

func (r Retry) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

// Behavior selects what terminal per-record failures do to the batch.
type Behavior struct {
	OnNullValues    string `toml:"on_null_values"`    // "fail"(default) | "ignore"
	OnError         string `toml:"on_error"`          // "fail"(default) | "log"
	ErrorsTolerance string `toml:"errors_tolerance"`  // "none"(default) | "all"
	DeadLetterTopic string `toml:"dead_letter_topic"` // optional dead-letter target
}

// Ops is the local listener for health and metrics.
type Ops struct {
	Listen string `toml:"listen"` // default: ":9105"
}
