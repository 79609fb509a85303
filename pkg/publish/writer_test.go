package publish

import (
	"strings"
	"testing"

	kafka "github.com/segmentio/kafka-go"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

func testKafka() manifest.Kafka {
	return manifest.Kafka{
		Brokers:  []string{"127.0.0.1:19092"},
		GroupID:  "sink",
		Topics:   []string{"orders"},
		ClientID: "httpsink",
	}
}

func TestNewResponseWriter_DurableProfile(t *testing.T) {
	w, err := NewResponseWriter(testKafka())
	if err != nil {
		t.Fatalf("NewResponseWriter() err = %v", err)
	}
	defer w.Close()

	if w.RequiredAcks != kafka.RequireAll {
		t.Errorf("RequiredAcks = %v, want RequireAll", w.RequiredAcks)
	}
	if w.Async {
		t.Error("response writer must be synchronous")
	}
	if w.BatchSize != 1 || w.MaxAttempts != 3 {
		t.Errorf("BatchSize/MaxAttempts = %d/%d, want 1/3", w.BatchSize, w.MaxAttempts)
	}
	if w.Compression != kafka.Snappy {
		t.Errorf("Compression = %v, want Snappy", w.Compression)
	}

	tr, ok := w.Transport.(*kafka.Transport)
	if !ok {
		t.Fatalf("Transport = %T", w.Transport)
	}
	if !strings.HasPrefix(tr.ClientID, "httpsink-response-") {
		t.Errorf("ClientID = %q", tr.ClientID)
	}
}

func TestNewErrorWriter_BestEffortProfile(t *testing.T) {
	w, err := NewErrorWriter(testKafka(), func([]kafka.Message, error) {})
	if err != nil {
		t.Fatalf("NewErrorWriter() err = %v", err)
	}
	defer w.Close()

	if w.RequiredAcks != kafka.RequireOne {
		t.Errorf("RequiredAcks = %v, want RequireOne", w.RequiredAcks)
	}
	if !w.Async {
		t.Error("error writer must be async")
	}
	if w.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", w.MaxAttempts)
	}
	if w.Completion == nil {
		t.Error("Completion callback not wired")
	}

	tr := w.Transport.(*kafka.Transport)
	if !strings.HasPrefix(tr.ClientID, "httpsink-error-") {
		t.Errorf("ClientID = %q", tr.ClientID)
	}
}

func TestSASLMechanism(t *testing.T) {
	m, err := SASLMechanism(&manifest.KafkaSASL{Mechanism: "PLAIN", Username: "u", Password: "p"})
	if err != nil || m.Name() != "PLAIN" {
		t.Errorf("PLAIN = %v, %v", m, err)
	}
	m, err = SASLMechanism(&manifest.KafkaSASL{Mechanism: "SCRAM-SHA-256", Username: "u", Password: "p"})
	if err != nil || m.Name() != "SCRAM-SHA-256" {
		t.Errorf("SCRAM-SHA-256 = %v, %v", m, err)
	}
	m, err = SASLMechanism(&manifest.KafkaSASL{Mechanism: "SCRAM-SHA-512", Username: "u", Password: "p"})
	if err != nil || m.Name() != "SCRAM-SHA-512" {
		t.Errorf("SCRAM-SHA-512 = %v, %v", m, err)
	}
	if _, err := SASLMechanism(&manifest.KafkaSASL{Mechanism: "GSSAPI"}); err == nil {
		t.Error("unsupported mechanism must error")
	}
}
