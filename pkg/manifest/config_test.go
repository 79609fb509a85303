package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func minimalConfig() Config {
	return Config{
		Endpoint: Endpoint{URL: "https://api.example.com/events"},
		Kafka: Kafka{
			Brokers: []string{"127.0.0.1:19092"},
			GroupID: "httpsink-group",
			Topics:  []string{"orders"},
		},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := minimalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err = %v", err)
	}

	if cfg.Endpoint.Method != "POST" {
		t.Errorf("Method = %q, want POST", cfg.Endpoint.Method)
	}
	if cfg.Endpoint.ConnectTimeoutMS != 5000 || cfg.Endpoint.RequestTimeoutMS != 30000 {
		t.Errorf("timeouts = %d/%d, want 5000/30000",
			cfg.Endpoint.ConnectTimeoutMS, cfg.Endpoint.RequestTimeoutMS)
	}
	if cfg.Endpoint.MaxConnectionsPerHost != 20 || cfg.Endpoint.MaxConnectionsTotal != 100 {
		t.Errorf("conns = %d/%d, want 20/100",
			cfg.Endpoint.MaxConnectionsPerHost, cfg.Endpoint.MaxConnectionsTotal)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("Auth.Type = %q, want none", cfg.Auth.Type)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BackoffInitialMS != 1000 ||
		cfg.Retry.BackoffMaxMS != 60000 || cfg.Retry.BackoffMultiplier != 2.0 {
		t.Errorf("retry defaults wrong: %+v", cfg.Retry)
	}
	if len(cfg.Retry.RetryOnStatusCodes) != 5 {
		t.Errorf("RetryOnStatusCodes = %v, want 5 defaults", cfg.Retry.RetryOnStatusCodes)
	}
	if cfg.Behavior.OnNullValues != "fail" || cfg.Behavior.OnError != "fail" || cfg.Behavior.ErrorsTolerance != "none" {
		t.Errorf("behavior defaults wrong: %+v", cfg.Behavior)
	}
	if cfg.Response.ValueFormat != "string" {
		t.Errorf("ValueFormat = %q, want string", cfg.Response.ValueFormat)
	}
	if cfg.Kafka.ClientID != "httpsink" {
		t.Errorf("ClientID = %q, want httpsink", cfg.Kafka.ClientID)
	}
	if cfg.Ops.Listen != ":9105" {
		t.Errorf("Ops.Listen = %q, want :9105", cfg.Ops.Listen)
	}
}

func TestValidate_MethodNormalized(t *testing.T) {
	cfg := minimalConfig()
	cfg.Endpoint.Method = " put "
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err = %v", err)
	}
	if cfg.Endpoint.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", cfg.Endpoint.Method)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		option string
	}{
		{"missing url", func(c *Config) { c.Endpoint.URL = "" }, "endpoint.url"},
		{"relative url", func(c *Config) { c.Endpoint.URL = "/events" }, "endpoint.url"},
		{"ftp scheme", func(c *Config) { c.Endpoint.URL = "ftp://host/x" }, "endpoint.url"},
		{"bad method", func(c *Config) { c.Endpoint.Method = "GET" }, "endpoint.method"},
		{"connect timeout too low", func(c *Config) { c.Endpoint.ConnectTimeoutMS = 500 }, "endpoint.connect_timeout_ms"},
		{"request timeout too low", func(c *Config) { c.Endpoint.RequestTimeoutMS = 999 }, "endpoint.request_timeout_ms"},
		{"total below per host", func(c *Config) {
			c.Endpoint.MaxConnectionsPerHost = 50
			c.Endpoint.MaxConnectionsTotal = 10
		}, "endpoint.max_connections_total"},
		{"unknown auth type", func(c *Config) { c.Auth.Type = "token" }, "auth.type"},
		{"basic without block", func(c *Config) { c.Auth.Type = "basic" }, "auth.basic"},
		{"basic missing password", func(c *Config) {
			c.Auth.Type = "basic"
			c.Auth.Basic = &BasicAuth{Username: "u"}
		}, "auth.basic"},
		{"bearer missing token", func(c *Config) { c.Auth.Type = "bearer" }, "auth.bearer.token"},
		{"apikey bad location", func(c *Config) {
			c.Auth.Type = "apikey"
			c.Auth.APIKey = &APIKeyAuth{Location: "body", Name: "k", Value: "v"}
		}, "auth.apikey.location"},
		{"apikey missing name", func(c *Config) {
			c.Auth.Type = "apikey"
			c.Auth.APIKey = &APIKeyAuth{Value: "v"}
		}, "auth.apikey"},
		{"oauth2 missing client", func(c *Config) {
			c.Auth.Type = "oauth2"
			c.Auth.OAuth2 = &OAuth2Auth{TokenURL: "https://idp/token"}
		}, "auth.oauth2"},
		{"oauth2 relative token url", func(c *Config) {
			c.Auth.Type = "oauth2"
			c.Auth.OAuth2 = &OAuth2Auth{TokenURL: "/token", ClientID: "id", ClientSecret: "s"}
		}, "auth.oauth2.token_url"},
		{"static empty header name", func(c *Config) {
			c.Forward.Static = map[string]string{" ": "v"}
		}, "forward.static"},
		{"response enabled without topic", func(c *Config) { c.Response.Enabled = true }, "response.topic"},
		{"bad value format", func(c *Config) { c.Response.ValueFormat = "avro" }, "response.value_format"},
		{"error enabled without topic", func(c *Config) { c.Error.Enabled = true }, "error.topic"},
		{"negative max attempts", func(c *Config) { c.Retry.MaxAttempts = -1 }, "retry.max_attempts"},
		{"max below initial", func(c *Config) {
			c.Retry.BackoffInitialMS = 5000
			c.Retry.BackoffMaxMS = 1000
		}, "retry.backoff_max_ms"},
		{"multiplier below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, "retry.backoff_multiplier"},
		{"status code out of range", func(c *Config) { c.Retry.RetryOnStatusCodes = []int{42} }, "retry.retry_on_status_codes"},
		{"bad on_null_values", func(c *Config) { c.Behavior.OnNullValues = "skip" }, "behavior.on_null_values"},
		{"bad on_error", func(c *Config) { c.Behavior.OnError = "retry" }, "behavior.on_error"},
		{"bad errors_tolerance", func(c *Config) { c.Behavior.ErrorsTolerance = "some" }, "behavior.errors_tolerance"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"blank broker", func(c *Config) { c.Kafka.Brokers = []string{" "} }, "kafka.brokers"},
		{"no group", func(c *Config) { c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"no topics", func(c *Config) { c.Kafka.Topics = nil }, "kafka.topics"},
		{"tls without ca", func(c *Config) {
			c.Kafka.Security = &KafkaSecurity{TLS: &KafkaTLS{Enable: true}}
		}, "kafka.security.tls.ca_files"},
		{"tls cert without key", func(c *Config) {
			c.Kafka.Security = &KafkaSecurity{TLS: &KafkaTLS{
				Enable: true, CAFiles: []string{"ca.pem"}, ServerName: "kafka", ClientCert: "c.pem",
			}}
		}, "kafka.security.tls"},
		{"bad sasl mechanism", func(c *Config) {
			c.Kafka.Security = &KafkaSecurity{SASL: &KafkaSASL{Mechanism: "GSSAPI", Username: "u", Password: "p"}}
		}, "kafka.security.sasl.mechanism"},
		{"sasl without password", func(c *Config) {
			c.Kafka.Security = &KafkaSecurity{SASL: &KafkaSASL{Mechanism: "plain", Username: "u"}}
		}, "kafka.security.sasl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.option) {
				t.Errorf("Validate() err = %v, want option %q", err, tt.option)
			}
		})
	}
}

func TestValidate_SASLMechanismUppercased(t *testing.T) {
	cfg := minimalConfig()
	cfg.Kafka.Security = &KafkaSecurity{SASL: &KafkaSASL{
		Mechanism: "scram-sha-256", Username: "u", Password: "p",
	}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err = %v", err)
	}
	if got := cfg.Kafka.Security.SASL.Mechanism; got != "SCRAM-SHA-256" {
		t.Errorf("Mechanism = %q, want SCRAM-SHA-256", got)
	}
}

func TestLoad(t *testing.T) {
	manifest := `
[endpoint]
url = "https://api.example.com/events"
method = "put"

[auth]
type = "bearer"

[auth.bearer]
token = "t0ps3cret"

[forward]
include = ["trace-*"]
prefix = "X-Fwd-"

[forward.static]
"X-App" = "httpsink"

[response]
enabled = true
topic = "${topic}-responses"
value_format = "json"

[error]
enabled = true
topic = "sink-errors"

[retry]
max_attempts = 3
backoff_initial_ms = 10
backoff_multiplier = 2.0

[behavior]
on_null_values = "ignore"

[kafka]
brokers = ["127.0.0.1:19092"]
group_id = "sink"
topics = ["orders", "payments"]

[ops]
listen = ":9199"
`
	path := filepath.Join(t.TempDir(), "manifest.toml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if cfg.Endpoint.Method != "PUT" {
		t.Errorf("Method = %q, want PUT", cfg.Endpoint.Method)
	}
	if cfg.Auth.Type != "bearer" || cfg.Auth.Bearer == nil || cfg.Auth.Bearer.Token != "t0ps3cret" {
		t.Errorf("auth not loaded: %+v", cfg.Auth)
	}
	if cfg.Forward.Prefix != "X-Fwd-" || cfg.Forward.Static["X-App"] != "httpsink" {
		t.Errorf("forward not loaded: %+v", cfg.Forward)
	}
	if !cfg.Response.Enabled || cfg.Response.Topic != "${topic}-responses" || cfg.Response.ValueFormat != "json" {
		t.Errorf("response not loaded: %+v", cfg.Response)
	}
	if !cfg.Error.Enabled || cfg.Error.Topic != "sink-errors" {
		t.Errorf("error topic not loaded: %+v", cfg.Error)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BackoffInitialMS != 10 {
		t.Errorf("retry not loaded: %+v", cfg.Retry)
	}
	if cfg.Retry.BackoffMaxMS != 60000 {
		t.Errorf("BackoffMaxMS = %d, want default 60000", cfg.Retry.BackoffMaxMS)
	}
	if cfg.Behavior.OnNullValues != "ignore" {
		t.Errorf("OnNullValues = %q, want ignore", cfg.Behavior.OnNullValues)
	}
	if len(cfg.Kafka.Topics) != 2 {
		t.Errorf("Topics = %v, want two", cfg.Kafka.Topics)
	}
	if cfg.Ops.Listen != ":9199" {
		t.Errorf("Ops.Listen = %q, want :9199", cfg.Ops.Listen)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load() = nil, want error")
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvManifestPath, "/etc/httpsink/manifest.toml")
	if got := PathFromEnv(); got != "/etc/httpsink/manifest.toml" {
		t.Errorf("PathFromEnv() = %q", got)
	}
	t.Setenv(EnvManifestPath, "")
	if got := PathFromEnv(); got != "manifest.toml" {
		t.Errorf("PathFromEnv() default = %q", got)
	}
}
