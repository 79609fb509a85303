// pkg/sinkfx/sinkfx.go
package sinkfx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/joeydtaylor/steeze-httpsink/pkg/auth"
	"github.com/joeydtaylor/steeze-httpsink/pkg/httpclient"
	"github.com/joeydtaylor/steeze-httpsink/pkg/manifest"
	"github.com/joeydtaylor/steeze-httpsink/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-httpsink/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-httpsink/pkg/publish"
	"github.com/joeydtaylor/steeze-httpsink/pkg/sink"
	"github.com/joeydtaylor/steeze-httpsink/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-httpsink/pkg/version"
)

// Options allow per-deployment naming without code duplication.
type Options struct {
	Service string // tag for logs, e.g. "httpsink"
}

// ---- Configuration ----

func provideConfig(log *zap.Logger) manifest.Config {
	path := manifest.PathFromEnv()
	cfg, err := manifest.Load(path)
	if err != nil {
		log.Fatal("manifest load failed", zap.Error(err), zap.String("path", path))
	}
	return cfg
}

// ---- Pipeline pieces ----

func provideAuthProvider(cfg manifest.Config, log *zap.Logger) (auth.Provider, error) {
	return auth.FromManifest(cfg.Auth, log)
}

func provideHTTPClient(cfg manifest.Config) *httpclient.Client {
	return httpclient.New(cfg.Endpoint)
}

func provideResponseWriter(cfg manifest.Config) (*kafka.Writer, error) {
	if !cfg.Response.Enabled {
		return nil, nil
	}
	return publish.NewResponseWriter(cfg.Kafka)
}

// errorTopic resolves the error target: the [error] block when enabled,
// else behavior.dead_letter_topic.
func errorTopic(cfg manifest.Config) string {
	if cfg.Error.Enabled {
		return cfg.Error.Topic
	}
	return cfg.Behavior.DeadLetterTopic
}

func provideErrorWriter(cfg manifest.Config, log *zap.Logger) (*kafka.Writer, error) {
	if errorTopic(cfg) == "" {
		return nil, nil
	}
	return publish.NewErrorWriter(cfg.Kafka, func(msgs []kafka.Message, err error) {
		if err != nil {
			metrics.PublishFailed("error")
			log.Error("error publish failed",
				zap.Int("messages", len(msgs)), zap.Error(err))
		}
	})
}

func provideResponsePublisher(cfg manifest.Config, w *kafka.Writer, log *zap.Logger) *publish.ResponsePublisher {
	if w == nil {
		return nil
	}
	return publish.NewResponsePublisher(cfg.Response, w, log)
}

func provideErrorPublisher(cfg manifest.Config, w *kafka.Writer, log *zap.Logger) *publish.ErrorPublisher {
	if w == nil {
		return nil
	}
	return publish.NewErrorPublisher(errorTopic(cfg), w, log)
}

func provideTask(
	cfg manifest.Config,
	provider auth.Provider,
	client *httpclient.Client,
	responses *publish.ResponsePublisher,
	errs *publish.ErrorPublisher,
	log *zap.Logger,
) *sink.Task {
	return sink.NewTask(cfg, provider, client, responses, errs, log)
}

func provideReader(cfg manifest.Config) (*kafka.Reader, error) {
	return sink.NewReader(cfg.Kafka)
}

func provideRunner(reader *kafka.Reader, task *sink.Task, log *zap.Logger) *sink.Runner {
	return sink.NewRunner(reader, task, log)
}

// ---- Ops listener ----

func provideOpsHandler(lm *logger.Middleware, m http.Handler, r httpx.Router) http.Handler {
	r.Use(chimd.RequestID)
	r.Use(lm.Middleware())
	r.Use(metrics.Collect())
	r.Get("/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
	}))
	r.Handle(http.MethodGet, "/metrics", m)
	return r.Mux()
}

// ---- Lifecycle ----

type runtimeDeps struct {
	fx.In

	Opts Options
	Cfg  manifest.Config

	Provider auth.Provider
	Client   *httpclient.Client
	Reader   *kafka.Reader
	Runner   *sink.Runner

	Responses *kafka.Writer `name:"responses"`
	Errors    *kafka.Writer `name:"errors"`

	Ops http.Handler `name:"ops"`
	Log *zap.Logger
}

func registerHooks(lc fx.Lifecycle, d runtimeDeps) {
	srv := &http.Server{
		Addr:         d.Cfg.Ops.Listen,
		Handler:      d.Ops,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Credentials are fetched before the first record so a bad
			// auth config fails the process at startup, not mid-batch.
			if err := d.Provider.Refresh(ctx); err != nil {
				return fmt.Errorf("credential refresh: %w", err)
			}

			d.Log.Info("sink starting",
				zap.String("service", d.Opts.Service),
				zap.String("endpoint", d.Cfg.Endpoint.URL),
				zap.Strings("topics", d.Cfg.Kafka.Topics),
				zap.String("ops", d.Cfg.Ops.Listen),
				zap.String("version", version.Version),
			)

			go func() {
				defer close(done)
				if err := d.Runner.Run(runCtx); err != nil {
					d.Log.Fatal("sink runner failed", zap.Error(err))
				}
				d.Log.Info("sink runner stopped")
			}()

			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Log.Fatal("ops listener failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Log.Info("sink stopping", zap.String("service", d.Opts.Service))

			runCancel()
			if err := d.Reader.Close(); err != nil {
				d.Log.Warn("reader close failed", zap.Error(err))
			}
			select {
			case <-done:
			case <-ctx.Done():
			}

			// Writer close flushes any in-flight async error records.
			if d.Responses != nil {
				if err := d.Responses.Close(); err != nil {
					d.Log.Warn("response writer close failed", zap.Error(err))
				}
			}
			if d.Errors != nil {
				if err := d.Errors.Close(); err != nil {
					d.Log.Warn("error writer close failed", zap.Error(err))
				}
			}
			d.Client.Close()

			return srv.Shutdown(ctx)
		},
	})
}

// ---- Public Fx module ----

func Module(opts Options) fx.Option {
	return fx.Options(
		// Supply options to DI.
		fx.Supply(opts),

		// Middleware modules
		logger.Module,

		// Metrics (named)
		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),

		// Router implementation
		fx.Provide(httpx.NewChi),

		// Manifest + pipeline
		fx.Provide(provideConfig),
		fx.Provide(provideAuthProvider),
		fx.Provide(provideHTTPClient),
		fx.Provide(fx.Annotate(provideResponseWriter, fx.ResultTags(`name:"responses"`))),
		fx.Provide(fx.Annotate(provideErrorWriter, fx.ResultTags(`name:"errors"`))),
		fx.Provide(fx.Annotate(provideResponsePublisher, fx.ParamTags(``, `name:"responses"`, ``))),
		fx.Provide(fx.Annotate(provideErrorPublisher, fx.ParamTags(``, `name:"errors"`, ``))),
		fx.Provide(provideTask),
		fx.Provide(provideReader),
		fx.Provide(provideRunner),

		// Ops listener handler (named "ops")
		fx.Provide(fx.Annotate(
			provideOpsHandler,
			fx.ParamTags(``, `name:"metrics"`, ``),
			fx.ResultTags(`name:"ops"`),
		)),

		// App lifecycle (starts runner + ops listener)
		fx.Invoke(registerHooks),
	)
}
