// pkg/sink/runner.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/publish"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

// fetcher is the slice of kafka.Reader the runner uses. Tests substitute
// a fake.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Runner pulls batches from the consumer group, hands them to the task,
// and commits offsets only after the whole batch succeeded.
type Runner struct {
	reader    fetcher
	task      *Task
	log       *zap.Logger
	maxBatch  int
	drainWait time.Duration
}

func NewRunner(reader fetcher, task *Task, log *zap.Logger) *Runner {
	return &Runner{
		reader:    reader,
		task:      task,
		log:       log,
		maxBatch:  500,
		drainWait: 100 * time.Millisecond,
	}
}

// NewReader builds the consumer-group reader for the source topics.
func NewReader(k manifest.Kafka) (*kafka.Reader, error) {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		ClientID:  k.ClientID + "-consumer",
	}
	if k.Security != nil {
		if t := k.Security.TLS; t != nil && t.Enable {
			cfg, err := publish.TLSConfig(t)
			if err != nil {
				return nil, err
			}
			dialer.TLS = cfg
		}
		if s := k.Security.SASL; s != nil && s.Mechanism != "" {
			mech, err := publish.SASLMechanism(s)
			if err != nil {
				return nil, err
			}
			dialer.SASLMechanism = mech
		}
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.Brokers,
		GroupID:     k.GroupID,
		GroupTopics: k.Topics,
		Dialer:      dialer,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	}), nil
}

// Run loops until the context is canceled or a batch fails. A failed
// batch leaves its offsets uncommitted; the group redelivers it.
func (r *Runner) Run(ctx context.Context) error {
	for {
		msgs, err := r.fetchBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		recs := make([]*record.Record, len(msgs))
		for i := range msgs {
			recs[i] = fromMessage(&msgs[i])
		}
		if err := r.task.ProcessBatch(ctx, recs); err != nil {
			return fmt.Errorf("batch failed: %w", err)
		}
		if err := r.reader.CommitMessages(ctx, msgs...); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit: %w", err)
		}
	}
}

// fetchBatch blocks for the first message, then drains whatever else is
// immediately available up to maxBatch.
func (r *Runner) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}
	for len(msgs) < r.maxBatch {
		drainCtx, cancel := context.WithTimeout(ctx, r.drainWait)
		m, err := r.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func fromMessage(m *kafka.Message) *record.Record {
	rec := &record.Record{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Headers:   make([]record.Header, 0, len(m.Headers)),
	}
	if !m.Time.IsZero() {
		rec.Timestamp = m.Time.UnixMilli()
	}
	if m.Value != nil {
		rec.Value = m.Value
	}
	for _, h := range m.Headers {
		rec.Headers = append(rec.Headers, record.Header{Key: h.Key, Value: h.Value})
	}
	return rec
}
