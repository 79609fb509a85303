// pkg/sink/task.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/auth"
	"github.com/joeydtaylor/steeze-httpsink/pkg/codec"
	"github.com/joeydtaylor/steeze-httpsink/pkg/headers"
	"github.com/joeydtaylor/steeze-httpsink/pkg/httpclient"
	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-httpsink/pkg/publish"
	"github.com/joeydtaylor/steeze-httpsink/pkg/record"
	"github.com/joeydtaylor/steeze-httpsink/pkg/retry"
)

// Task drives one record at a time through build, execute, and publish.
// Records within a batch are processed strictly sequentially, which is
// what keeps response-topic order aligned with source offsets.
type Task struct {
	endpoint manifest.Endpoint
	behavior manifest.Behavior
	provider auth.Provider
	client   *httpclient.Client
	rules    headers.Rules
	policy   retry.Policy

	// nil when the corresponding topic is disabled
	responses *publish.ResponsePublisher
	errors    *publish.ErrorPublisher

	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTask(
	cfg manifest.Config,
	provider auth.Provider,
	client *httpclient.Client,
	responses *publish.ResponsePublisher,
	errs *publish.ErrorPublisher,
	log *zap.Logger,
) *Task {
	return &Task{
		endpoint:  cfg.Endpoint,
		behavior:  cfg.Behavior,
		provider:  provider,
		client:    client,
		rules:     headers.FromManifest(cfg.Forward),
		policy:    retry.FromManifest(cfg.Retry),
		responses: responses,
		errors:    errs,
		log:       log,
		sleep:     sleepCtx,
	}
}

// ProcessBatch runs every record in order. The first record that must
// fail the batch stops processing; the caller must not commit offsets.
func (t *Task) ProcessBatch(ctx context.Context, recs []*record.Record) error {
	for _, rec := range recs {
		if err := t.processRecord(ctx, rec); err != nil {
			metrics.RecordProcessed("failed")
			return err
		}
	}
	return nil
}

// processRecord runs the per-record pipeline and classifies whatever
// escapes the typed fault branches. With the error topic enabled an
// unclassified failure becomes a PROCESSING_ERROR record and the batch
// moves on; cancellation always stops the task instead.
func (t *Task) processRecord(ctx context.Context, rec *record.Record) error {
	err := t.process(ctx, rec)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if t.errors != nil {
		t.emitError(ctx, publish.ErrorEvent{
			Type:    publish.ErrorTypeProcessing,
			Message: err.Error(),
			Record:  rec,
		})
		return nil
	}
	return err
}

func (t *Task) process(ctx context.Context, rec *record.Record) error {
	if rec.Value == nil {
		return t.handleNull(ctx, rec)
	}

	body, err := codec.BuildBody(rec.Value)
	if err != nil {
		if errors.Is(err, codec.ErrNullValue) {
			return t.handleNull(ctx, rec)
		}
		if t.errors != nil {
			t.emitError(ctx, publish.ErrorEvent{
				Type:    publish.ErrorTypeConversion,
				Message: err.Error(),
				Record:  rec,
			})
			return nil
		}
		return t.failOrTolerate(rec, fmt.Sprintf("record %s: %v", rec.Coordinates(), err))
	}

	return t.execute(ctx, rec, body, t.rules.Apply(rec.Headers))
}

// handleNull checks the error topic before behavior.on_null_values: with
// the topic enabled a NULL_VALUE record is always emitted.
func (t *Task) handleNull(ctx context.Context, rec *record.Record) error {
	if t.errors != nil {
		t.emitError(ctx, publish.ErrorEvent{
			Type:    publish.ErrorTypeNullValue,
			Message: "record value is null",
			Record:  rec,
		})
		return nil
	}
	if t.behavior.OnNullValues == "ignore" {
		t.log.Debug("null value ignored", zap.String("record", rec.Coordinates()))
		metrics.RecordProcessed("ignored")
		return nil
	}
	return t.failOrTolerate(rec, fmt.Sprintf("record %s has null value", rec.Coordinates()))
}

func (t *Task) execute(ctx context.Context, rec *record.Record, body []byte, fwd map[string]string) error {
	attempt := 0
	for {
		resp, err := t.attempt(ctx, body, fwd)
		if err != nil {
			metrics.ObserveAttemptError()

			var authErr *auth.Error
			isAuth := errors.As(err, &authErr)
			retryable := !isAuth && t.policy.RetryableError(err)
			if retryable && t.policy.HasMoreAttempts(attempt) {
				if serr := t.backoff(ctx, rec, attempt); serr != nil {
					return serr
				}
				attempt++
				continue
			}
			if ctx.Err() != nil {
				// Cancellation is a task stop, not a record fault.
				return ctx.Err()
			}

			evType := publish.ErrorTypeHTTPException
			if retryable && t.policy.Enabled {
				evType = publish.ErrorTypeRetryExhausted
			}
			if t.errors != nil {
				t.emitError(ctx, publish.ErrorEvent{
					Type:       evType,
					Message:    err.Error(),
					Record:     rec,
					RetryCount: attempt + 1,
				})
				return nil
			}
			return t.failOrTolerate(rec, fmt.Sprintf("record %s: %v", rec.Coordinates(), err))
		}

		metrics.ObserveAttempt(resp.Status, float64(resp.ElapsedMS)/1000)

		if resp.Success() {
			t.publishResponse(ctx, rec, resp)
			metrics.RecordProcessed("success")
			return nil
		}

		retryable := t.policy.RetryableStatus(resp.Status)
		if retryable && t.policy.HasMoreAttempts(attempt) {
			if serr := t.backoff(ctx, rec, attempt); serr != nil {
				return serr
			}
			attempt++
			continue
		}

		// The final failed response is still published before any error
		// record; consumers of both topics may observe the same offset.
		t.publishResponse(ctx, rec, resp)

		r := resp
		if retryable {
			msg := fmt.Sprintf("retry exhausted after %d attempts, last status %d", attempt+1, resp.Status)
			if t.errors != nil {
				t.emitError(ctx, publish.ErrorEvent{
					Type:       publish.ErrorTypeRetryExhausted,
					Message:    msg,
					Record:     rec,
					Response:   &r,
					RetryCount: attempt + 1,
				})
				return nil
			}
			if t.behavior.OnError == "log" {
				t.log.Warn("record dropped", zap.String("record", rec.Coordinates()), zap.String("reason", msg))
				metrics.RecordProcessed("error")
				return nil
			}
			return t.failOrTolerate(rec, fmt.Sprintf("record %s: %s", rec.Coordinates(), msg))
		}

		msg := fmt.Sprintf("endpoint returned status %d", resp.Status)
		if t.errors != nil {
			t.emitError(ctx, publish.ErrorEvent{
				Type:       publish.ErrorTypeHTTPError,
				Message:    msg,
				Record:     rec,
				Response:   &r,
				RetryCount: attempt,
			})
			return nil
		}
		if t.behavior.OnError == "log" {
			t.log.Warn("record dropped", zap.String("record", rec.Coordinates()), zap.String("reason", msg))
			metrics.RecordProcessed("error")
			return nil
		}
		return t.failOrTolerate(rec, fmt.Sprintf("record %s: %s", rec.Coordinates(), msg))
	}
}

// attempt rebuilds the request so credentials rotate between attempts.
func (t *Task) attempt(ctx context.Context, body []byte, fwd map[string]string) (httpclient.Response, error) {
	creds, err := t.provider.Materialize(ctx)
	if err != nil {
		return httpclient.Response{}, err
	}

	reqURL := t.endpoint.URL
	if len(creds.Query) > 0 {
		reqURL, err = httpclient.AppendQuery(reqURL, creds.Query)
		if err != nil {
			return httpclient.Response{}, err
		}
	}

	hdrs := make(map[string]string, len(fwd)+len(creds.Headers))
	for k, v := range fwd {
		hdrs[k] = v
	}
	for k, v := range creds.Headers {
		hdrs[k] = v
	}

	return t.client.Execute(ctx, httpclient.Request{
		Method:  t.endpoint.Method,
		URL:     reqURL,
		Headers: hdrs,
		Body:    body,
	})
}

func (t *Task) backoff(ctx context.Context, rec *record.Record, attempt int) error {
	delay := time.Duration(t.policy.DelayMS(attempt)) * time.Millisecond
	t.log.Debug("retrying after backoff",
		zap.String("record", rec.Coordinates()),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay))
	metrics.RetrySlept()
	return t.sleep(ctx, delay)
}

func (t *Task) publishResponse(ctx context.Context, rec *record.Record, resp httpclient.Response) {
	if t.responses == nil {
		return
	}
	// A publish failure never replays the HTTP call; the upstream side
	// effect already happened. Logged and dropped.
	if err := t.responses.Publish(ctx, rec, resp); err != nil {
		metrics.PublishFailed("response")
		t.log.Error("response publish failed",
			zap.String("record", rec.Coordinates()), zap.Error(err))
	}
}

func (t *Task) emitError(ctx context.Context, ev publish.ErrorEvent) {
	t.errors.Publish(ctx, ev)
	metrics.RecordProcessed("error")
}

func (t *Task) failOrTolerate(rec *record.Record, msg string) error {
	if t.behavior.ErrorsTolerance == "all" {
		t.log.Warn("record dropped, errors tolerated", zap.String("record", rec.Coordinates()), zap.String("reason", msg))
		metrics.RecordProcessed("error")
		return nil
	}
	return errors.New(msg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
