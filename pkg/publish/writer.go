// pkg/publish/writer.go
package publish

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
)

// messageWriter is the slice of kafka.Writer the publishers use. Tests
// substitute a fake.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewResponseWriter builds the durable profile: every replica must ack,
// writes are synchronous with a single batch in flight, payloads are
// snappy-compressed. Combined with the sequential pipeline this keeps
// response records in source-offset order per partition.
func NewResponseWriter(k manifest.Kafka) (*kafka.Writer, error) {
	transport, err := newTransport(k, "-response")
	if err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(k.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		BatchSize:    1,
		Compression:  kafka.Snappy,
		WriteTimeout: 30 * time.Second,
		Transport:    transport,
	}, nil
}

// NewErrorWriter builds the best-effort profile: leader ack only, async
// completion, short timeouts. Failures surface through the completion
// callback, never to the caller.
func NewErrorWriter(k manifest.Kafka, completion func(messages []kafka.Message, err error)) (*kafka.Writer, error) {
	transport, err := newTransport(k, "-error")
	if err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(k.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  2,
		WriteTimeout: 10 * time.Second,
		Transport:    transport,
		Completion:   completion,
	}, nil
}

func newTransport(k manifest.Kafka, suffix string) (*kafka.Transport, error) {
	transport := &kafka.Transport{
		ClientID: k.ClientID + suffix + "-" + uuid.NewString()[:8],
	}
	if k.Security == nil {
		return transport, nil
	}
	if t := k.Security.TLS; t != nil && t.Enable {
		cfg, err := TLSConfig(t)
		if err != nil {
			return nil, err
		}
		transport.TLS = cfg
	}
	if s := k.Security.SASL; s != nil && s.Mechanism != "" {
		mech, err := SASLMechanism(s)
		if err != nil {
			return nil, err
		}
		transport.SASL = mech
	}
	return transport, nil
}

func TLSConfig(t *manifest.KafkaTLS) (*tls.Config, error) {
	pool := x509.NewCertPool()
	for _, ca := range t.CAFiles {
		pem, err := os.ReadFile(ca)
		if err != nil {
			return nil, fmt.Errorf("kafka tls: read ca %s: %w", ca, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("kafka tls: no certs in %s", ca)
		}
	}
	cfg := &tls.Config{
		RootCAs:            pool,
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if t.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("kafka tls: client pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func SASLMechanism(s *manifest.KafkaSASL) (sasl.Mechanism, error) {
	switch s.Mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	default:
		return nil, fmt.Errorf("kafka sasl: mechanism %q unsupported", s.Mechanism)
	}
}
