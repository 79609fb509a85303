// pkg/publish/response.go
package publish

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/httpclient"
	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
)

// ResponsePublisher emits one durable record per concluded HTTP response.
type ResponsePublisher struct {
	w   messageWriter
	cfg manifest.Response
	log *zap.Logger
}

func NewResponsePublisher(cfg manifest.Response, w messageWriter, log *zap.Logger) *ResponsePublisher {
	return &ResponsePublisher{w: w, cfg: cfg, log: log}
}

// Publish writes the response record and waits for the broker ack. The
// caller logs failures and still treats the source record as processed;
// the upstream call already succeeded and must not be replayed.
func (p *ResponsePublisher) Publish(ctx context.Context, rec *record.Record, resp httpclient.Response) error {
	msg := kafka.Message{
		Topic:   ResolveTopic(p.cfg.Topic, rec.Topic),
		Value:   p.value(rec, resp),
		Headers: p.headers(rec, resp),
	}
	if p.cfg.KeyIncluded() {
		msg.Key = rec.Key
	}
	return p.w.WriteMessages(ctx, msg)
}

func (p *ResponsePublisher) value(rec *record.Record, resp httpclient.Response) []byte {
	if resp.Body == "" {
		return nil
	}
	body := []byte(resp.Body)
	if p.cfg.ValueFormat == "json" && !json.Valid(body) {
		// Forward the bytes verbatim anyway; only the format claim drops.
		p.log.Warn("response body is not valid JSON, forwarding as string",
			zap.String("record", rec.Coordinates()))
	}
	return body
}

// headers assembles the response-record headers: forwarded originals,
// then the HTTP response headers under http.response.*, then request
// metadata. Values keep their canonical decimal text encodings.
func (p *ResponsePublisher) headers(rec *record.Record, resp httpclient.Response) []kafka.Header {
	var out []kafka.Header

	if p.cfg.HeadersIncluded() {
		for _, h := range rec.Headers {
			if !p.originalIncluded(h.Key) {
				continue
			}
			val, ok := typedHeaderValue(h.Value)
			if !ok {
				continue
			}
			out = append(out, kafka.Header{Key: h.Key, Value: val})
		}
	}

	for name, val := range resp.Headers {
		out = append(out, kafka.Header{Key: "http.response." + name, Value: []byte(val)})
	}

	if p.cfg.MetadataIncluded() {
		out = append(out,
			kafka.Header{Key: "http.status.code", Value: intHeader(resp.Status)},
			kafka.Header{Key: "http.response.time.ms", Value: longHeader(resp.ElapsedMS)},
			kafka.Header{Key: "kafka.original.topic", Value: []byte(rec.Topic)},
			kafka.Header{Key: "kafka.original.partition", Value: intHeader(rec.Partition)},
			kafka.Header{Key: "kafka.original.offset", Value: longHeader(rec.Offset)},
		)
		if rec.HasTimestamp() {
			out = append(out, kafka.Header{Key: "kafka.timestamp", Value: longHeader(rec.Timestamp)})
		}
	}
	return out
}

func (p *ResponsePublisher) originalIncluded(name string) bool {
	if len(p.cfg.OriginalHeadersInclude) == 0 {
		return true
	}
	for _, want := range p.cfg.OriginalHeadersInclude {
		if want == name {
			return true
		}
	}
	return false
}

func intHeader(v int) []byte    { return []byte(strconv.Itoa(v)) }
func longHeader(v int64) []byte { return []byte(strconv.FormatInt(v, 10)) }

// typedHeaderValue keeps the producer's type in its canonical text form.
// Byte values pass through raw; null-valued headers are dropped.
func typedHeaderValue(v any) ([]byte, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return []byte(t), true
	case []byte:
		return t, true
	case bool:
		return []byte(strconv.FormatBool(t)), true
	case int:
		return intHeader(t), true
	case int8:
		return longHeader(int64(t)), true
	case int16:
		return longHeader(int64(t)), true
	case int32:
		return longHeader(int64(t)), true
	case int64:
		return longHeader(t), true
	case float32:
		return []byte(strconv.FormatFloat(float64(t), 'g', -1, 32)), true
	case float64:
		return []byte(strconv.FormatFloat(t, 'g', -1, 64)), true
	default:
		return nil, false
	}
}
