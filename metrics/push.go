package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushConfig configures pushing metrics to a Prometheus push gateway.
type PushConfig struct {
	URL      string            `mapstructure:"push-url"`
	Username string            `mapstructure:"push-username"`
	Password string            `mapstructure:"push-password"`
	Headers  map[string]string `mapstructure:"push-headers"`
	Period   time.Duration     `mapstructure:"push-period"`
}

// NewPusher creates a pusher of the default registry grouped by instance.
func NewPusher(cfg PushConfig, instance string) *push.Pusher {
	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Add(k, v)
	}
	pusher := push.New(cfg.URL, Namespace).Gatherer(prometheus.DefaultGatherer).
		Grouping("instance", instance).
		Header(header)
	if cfg.Username != "" && cfg.Password != "" {
		pusher = pusher.BasicAuth(cfg.Username, cfg.Password)
	}
	return pusher
}

// StartPushing pushes metrics every cfg.Period until ctx is done. The last
// push happens on the way out so that short-lived commands are recorded.
func StartPushing(ctx context.Context, logger *zap.Logger, cfg PushConfig, instance string) <-chan struct{} {
	pusher := NewPusher(cfg, instance)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := pusher.Push(); err != nil {
					logger.Warn("failed to push metrics", zap.Error(err))
				}
				return
			case <-ticker.C:
				if err := pusher.Push(); err != nil {
					logger.Warn("failed to push metrics", zap.Error(err))
				}
			}
		}
	}()
	return done
}
