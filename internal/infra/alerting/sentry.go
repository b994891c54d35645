// File: internal/infra/alerting/sentry.go
package alerting

import (
	"context"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/infra/logging"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// Reporter sends errors to Sentry. A Reporter built without a DSN only logs.
type Reporter struct {
	hub *sentry.Hub
	log *zerolog.Logger
}

func NewReporter(cfg config.SentryConfig, release string, logger *zerolog.Logger) (*Reporter, error) {
	l := logger.With().Str("component", "alerting").Logger()
	if cfg.DSN == "" {
		return &Reporter{log: &l}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
	})
	if err != nil {
		return nil, err
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope()), log: &l}, nil
}

func (r *Reporter) Enabled() bool { return r != nil && r.hub != nil }

// Capture reports err with tags and the request trace id.
func (r *Reporter) Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	if !r.Enabled() {
		logging.With(ctx, r.log).Debug().Err(err).Msg("error reporting disabled")
		return
	}
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			if v != "" {
				scope.SetTag(k, v)
			}
		}
		if tid := logging.TraceID(ctx); tid != "" {
			scope.SetTag("trace_id", tid)
		}
		hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events.
func (r *Reporter) Flush(timeout time.Duration) {
	if r.Enabled() {
		r.hub.Flush(timeout)
	}
}
