// pkg/publish/error.go
package publish

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/httpclient"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

// Error types carried in the errorType field and error.type header.
const (
	ErrorTypeConversion     = "CONVERSION_ERROR"
	ErrorTypeNullValue      = "NULL_VALUE"
	ErrorTypeHTTPError      = "HTTP_ERROR"
	ErrorTypeRetryExhausted = "RETRY_EXHAUSTED"
	ErrorTypeHTTPException  = "HTTP_EXCEPTION"
	ErrorTypeProcessing     = "PROCESSING_ERROR"
)

// ErrorEvent is one terminal per-record failure.
type ErrorEvent struct {
	Type       string
	Message    string
	Record     *record.Record
	Response   *httpclient.Response // nil when no attempt produced a status
	RetryCount int
}

// ErrorPublisher is fire-and-forget: it never returns an error, never
// blocks past the writer's bounded timeouts, and never emits an error
// record about its own failure.
type ErrorPublisher struct {
	topic string // template
	w     messageWriter
	log   *zap.Logger
	now   func() time.Time
}

func NewErrorPublisher(topic string, w messageWriter, log *zap.Logger) *ErrorPublisher {
	return &ErrorPublisher{topic: topic, w: w, log: log, now: time.Now}
}

func (p *ErrorPublisher) Publish(ctx context.Context, ev ErrorEvent) {
	value, err := p.document(ev)
	if err != nil {
		p.log.Error("error record encode failed",
			zap.String("record", ev.Record.Coordinates()), zap.Error(err))
		return
	}
	msg := kafka.Message{
		Topic:   ResolveTopic(p.topic, ev.Record.Topic),
		Key:     ev.Record.Key,
		Value:   value,
		Headers: p.headers(ev),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("error record publish failed",
			zap.String("record", ev.Record.Coordinates()), zap.Error(err))
	}
}

type errorDoc struct {
	ErrorType         string  `json:"errorType"`
	ErrorMessage      string  `json:"errorMessage"`
	ErrorTimestamp    int64   `json:"errorTimestamp"`
	RetryCount        *int    `json:"retryCount,omitempty"`
	HTTPStatusCode    *int    `json:"httpStatusCode,omitempty"`
	HTTPResponseBody  *string `json:"httpResponseBody,omitempty"`
	OriginalTopic     string  `json:"originalTopic"`
	OriginalPartition int     `json:"originalPartition"`
	OriginalOffset    int64   `json:"originalOffset"`
}

func (p *ErrorPublisher) document(ev ErrorEvent) ([]byte, error) {
	doc := errorDoc{
		ErrorType:         ev.Type,
		ErrorMessage:      ev.Message,
		ErrorTimestamp:    p.now().UnixMilli(),
		OriginalTopic:     ev.Record.Topic,
		OriginalPartition: ev.Record.Partition,
		OriginalOffset:    ev.Record.Offset,
	}
	if ev.RetryCount > 0 {
		doc.RetryCount = &ev.RetryCount
	}
	if ev.Response != nil {
		doc.HTTPStatusCode = &ev.Response.Status
		doc.HTTPResponseBody = &ev.Response.Body
	}
	return json.Marshal(doc)
}

// headers are plain UTF-8 strings, unlike the response publisher's typed
// encodings. Downstream consumers rely on the difference.
func (p *ErrorPublisher) headers(ev ErrorEvent) []kafka.Header {
	var out []kafka.Header

	for _, h := range ev.Record.Headers {
		val, ok := stringHeaderValue(h.Value)
		if !ok {
			continue
		}
		out = append(out, kafka.Header{Key: h.Key, Value: []byte(val)})
	}

	if ev.Response != nil {
		for name, val := range ev.Response.Headers {
			out = append(out, kafka.Header{Key: "http.response." + name, Value: []byte(val)})
		}
	}

	out = append(out,
		kafka.Header{Key: "error.type", Value: []byte(ev.Type)},
		kafka.Header{Key: "error.message", Value: []byte(ev.Message)},
		kafka.Header{Key: "error.timestamp", Value: longHeader(p.now().UnixMilli())},
	)
	if ev.Response != nil {
		out = append(out, kafka.Header{Key: "error.http.status.code", Value: intHeader(ev.Response.Status)})
	}
	if ev.RetryCount > 0 {
		out = append(out, kafka.Header{Key: "error.retry.count", Value: intHeader(ev.RetryCount)})
	}
	out = append(out,
		kafka.Header{Key: "kafka.original.topic", Value: []byte(ev.Record.Topic)},
		kafka.Header{Key: "kafka.original.partition", Value: intHeader(ev.Record.Partition)},
		kafka.Header{Key: "kafka.original.offset", Value: longHeader(ev.Record.Offset)},
	)
	return out
}

func stringHeaderValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
