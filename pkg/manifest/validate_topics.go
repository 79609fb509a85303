// pkg/manifest/validate_topics.go
package manifest

import "strings"

func (c *Config) validateTopics() error {
	r := &c.Response
	if r.Enabled && strings.TrimSpace(r.Topic) == "" {
		return badOption("response.topic", "required when response.enabled=true")
	}
	if strings.TrimSpace(r.ValueFormat) == "" {
		r.ValueFormat = "string"
	} else {
		r.ValueFormat = strings.ToLower(strings.TrimSpace(r.ValueFormat))
		if r.ValueFormat != "string" && r.ValueFormat != "json" {
			return badOption("response.value_format", "%q invalid (string|json)", r.ValueFormat)
		}
	}

	e := &c.Error
	if e.Enabled && strings.TrimSpace(e.Topic) == "" {
		return badOption("error.topic", "required when error.enabled=true")
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := &c.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.MaxAttempts < 1 {
		return badOption("retry.max_attempts", "must be >= 1")
	}
	if r.BackoffInitialMS == 0 {
		r.BackoffInitialMS = 1000
	}
	if r.BackoffInitialMS < 0 {
		return badOption("retry.backoff_initial_ms", "must be >= 0")
	}
	if r.BackoffMaxMS == 0 {
		r.BackoffMaxMS = 60000
	}
	if r.BackoffMaxMS < r.BackoffInitialMS {
		return badOption("retry.backoff_max_ms", "must be >= backoff_initial_ms")
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
	if r.BackoffMultiplier < 1.0 {
		return badOption("retry.backoff_multiplier", "must be >= 1.0")
	}
	if len(r.RetryOnStatusCodes) == 0 {
		r.RetryOnStatusCodes = []int{429, 500, 502, 503, 504}
	}
	for _, code := range r.RetryOnStatusCodes {
		if code < 100 || code > 599 {
			return badOption("retry.retry_on_status_codes", "status %d out of range", code)
		}
	}
	return nil
}

func (c *Config) validateBehavior() error {
	b := &c.Behavior

	switch strings.ToLower(strings.TrimSpace(b.OnNullValues)) {
	case "":
		b.OnNullValues = "fail"
	case "fail", "ignore":
		b.OnNullValues = strings.ToLower(strings.TrimSpace(b.OnNullValues))
	default:
		return badOption("behavior.on_null_values", "%q invalid (fail|ignore)", b.OnNullValues)
	}

	switch strings.ToLower(strings.TrimSpace(b.OnError)) {
	case "":
		b.OnError = "fail"
	case "fail", "log":
		b.OnError = strings.ToLower(strings.TrimSpace(b.OnError))
	default:
		return badOption("behavior.on_error", "%q invalid (fail|log)", b.OnError)
	}

	switch strings.ToLower(strings.TrimSpace(b.ErrorsTolerance)) {
	case "":
		b.ErrorsTolerance = "none"
	case "none", "all":
		b.ErrorsTolerance = strings.ToLower(strings.TrimSpace(b.ErrorsTolerance))
	default:
		return badOption("behavior.errors_tolerance", "%q invalid (none|all)", b.ErrorsTolerance)
	}

	if b.DeadLetterTopic != "" && strings.TrimSpace(b.DeadLetterTopic) == "" {
		return badOption("behavior.dead_letter_topic", "blank topic name")
	}
	return nil
}

func (c *Config) validateOps() error {
	if strings.TrimSpace(c.Ops.Listen) == "" {
		c.Ops.Listen = ":9105"
	}
	return nil
}
