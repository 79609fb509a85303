package publish

import (
	"context"
	"errors"
	"testing"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/httpclient"
	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func headerValue(t *testing.T, hs []kafka.Header, key string) string {
	t.Helper()
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	t.Fatalf("header %q not found in %v", key, hs)
	return ""
}

func hasHeaderKey(hs []kafka.Header, key string) bool {
	for _, h := range hs {
		if h.Key == key {
			return true
		}
	}
	return false
}

func testRecord() *record.Record {
	return &record.Record{
		Topic:     "orders",
		Partition: 2,
		Offset:    41,
		Timestamp: 1700000000000,
		Key:       []byte("k1"),
		Headers: []record.Header{
			{Key: "trace-id", Value: "abc"},
			{Key: "count", Value: int64(3)},
			{Key: "drop-me", Value: nil},
		},
	}
}

func TestResolveTopic(t *testing.T) {
	if got := ResolveTopic("${topic}-responses", "orders"); got != "orders-responses" {
		t.Errorf("ResolveTopic = %q", got)
	}
	if got := ResolveTopic("fixed", "orders"); got != "fixed" {
		t.Errorf("ResolveTopic = %q", got)
	}
}

func TestResponsePublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewResponsePublisher(manifest.Response{
		Enabled: true,
		Topic:   "${topic}-responses",
	}, w, zap.NewNop())

	resp := httpclient.Response{
		Status:    201,
		Headers:   map[string]string{"X-Request-Id": "req-1"},
		Body:      `{"ok":true}`,
		ElapsedMS: 12,
	}
	if err := p.Publish(context.Background(), testRecord(), resp); err != nil {
		t.Fatalf("Publish() err = %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]

	if msg.Topic != "orders-responses" {
		t.Errorf("Topic = %q", msg.Topic)
	}
	if string(msg.Key) != "k1" {
		t.Errorf("Key = %q, want original key by default", msg.Key)
	}
	if string(msg.Value) != `{"ok":true}` {
		t.Errorf("Value = %q", msg.Value)
	}

	if got := headerValue(t, msg.Headers, "trace-id"); got != "abc" {
		t.Errorf("trace-id = %q", got)
	}
	if got := headerValue(t, msg.Headers, "count"); got != "3" {
		t.Errorf("count = %q", got)
	}
	if hasHeaderKey(msg.Headers, "drop-me") {
		t.Error("null-valued original header must be dropped")
	}
	if got := headerValue(t, msg.Headers, "http.response.X-Request-Id"); got != "req-1" {
		t.Errorf("http.response.X-Request-Id = %q", got)
	}
	if got := headerValue(t, msg.Headers, "http.status.code"); got != "201" {
		t.Errorf("http.status.code = %q", got)
	}
	if got := headerValue(t, msg.Headers, "http.response.time.ms"); got != "12" {
		t.Errorf("http.response.time.ms = %q", got)
	}
	if got := headerValue(t, msg.Headers, "kafka.original.topic"); got != "orders" {
		t.Errorf("kafka.original.topic = %q", got)
	}
	if got := headerValue(t, msg.Headers, "kafka.original.partition"); got != "2" {
		t.Errorf("kafka.original.partition = %q", got)
	}
	if got := headerValue(t, msg.Headers, "kafka.original.offset"); got != "41" {
		t.Errorf("kafka.original.offset = %q", got)
	}
	if got := headerValue(t, msg.Headers, "kafka.timestamp"); got != "1700000000000" {
		t.Errorf("kafka.timestamp = %q", got)
	}
}

func TestResponsePublish_Toggles(t *testing.T) {
	off := false
	w := &fakeWriter{}
	p := NewResponsePublisher(manifest.Response{
		Enabled:                true,
		Topic:                  "responses",
		IncludeOriginalKey:     &off,
		IncludeOriginalHeaders: &off,
		IncludeRequestMetadata: &off,
	}, w, zap.NewNop())

	if err := p.Publish(context.Background(), testRecord(), httpclient.Response{Status: 200}); err != nil {
		t.Fatal(err)
	}
	msg := w.msgs[0]

	if msg.Key != nil {
		t.Errorf("Key = %q, want omitted", msg.Key)
	}
	if msg.Value != nil {
		t.Errorf("Value = %q, want nil for empty body", msg.Value)
	}
	if hasHeaderKey(msg.Headers, "trace-id") {
		t.Error("original headers must be omitted")
	}
	if hasHeaderKey(msg.Headers, "http.status.code") || hasHeaderKey(msg.Headers, "kafka.original.topic") {
		t.Error("metadata headers must be omitted")
	}
}

func TestResponsePublish_OriginalHeadersWhitelist(t *testing.T) {
	w := &fakeWriter{}
	p := NewResponsePublisher(manifest.Response{
		Enabled:                true,
		Topic:                  "responses",
		OriginalHeadersInclude: []string{"trace-id"},
	}, w, zap.NewNop())

	if err := p.Publish(context.Background(), testRecord(), httpclient.Response{Status: 200}); err != nil {
		t.Fatal(err)
	}
	msg := w.msgs[0]
	if !hasHeaderKey(msg.Headers, "trace-id") {
		t.Error("whitelisted header missing")
	}
	if hasHeaderKey(msg.Headers, "count") {
		t.Error("non-whitelisted header forwarded")
	}
}

func TestResponsePublish_InvalidJSONStillForwarded(t *testing.T) {
	w := &fakeWriter{}
	p := NewResponsePublisher(manifest.Response{
		Enabled:     true,
		Topic:       "responses",
		ValueFormat: "json",
	}, w, zap.NewNop())

	resp := httpclient.Response{Status: 200, Body: "<html>not json</html>"}
	if err := p.Publish(context.Background(), testRecord(), resp); err != nil {
		t.Fatal(err)
	}
	if got := string(w.msgs[0].Value); got != "<html>not json</html>" {
		t.Errorf("Value = %q, want verbatim body", got)
	}
}

func TestResponsePublish_WriterErrorPropagates(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewResponsePublisher(manifest.Response{Enabled: true, Topic: "responses"}, w, zap.NewNop())

	if err := p.Publish(context.Background(), testRecord(), httpclient.Response{Status: 200}); err == nil {
		t.Fatal("Publish() = nil, want writer error")
	}
}

func TestTypedHeaderValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"nil dropped", nil, "", false},
		{"string", "x", "x", true},
		{"bytes raw", []byte{0x01, 0x02}, "\x01\x02", true},
		{"bool", true, "true", true},
		{"int", 7, "7", true},
		{"int64", int64(-9), "-9", true},
		{"float64", 1.25, "1.25", true},
		{"unknown dropped", struct{}{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := typedHeaderValue(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && string(got) != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}
