// Package events publishes analysis notifications to NATS.
package events

import (
	"context"
	"fmt"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/metrics"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// AnalysisCompleted is sent after an analysis has been stored.
type AnalysisCompleted struct {
	AnalysisID   string    `json:"analysisId"`
	Season       string    `json:"season"`
	Guild        string    `json:"guild"`
	Source       string    `json:"source"`
	TotalPlayers int       `json:"totalPlayers"`
	GuildScore   int64     `json:"guildScore"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, ev AnalysisCompleted) error
}

// Noop drops every event. It is used when NATS_URL is unset.
type Noop struct{}

func (Noop) PublishAnalysisCompleted(context.Context, AnalysisCompleted) error { return nil }

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("guild-battle-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

func (p *NATSPublisher) PublishAnalysisCompleted(ctx context.Context, ev AnalysisCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	if err := p.flush(ctx); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	metrics.EventsPublished.WithLabelValues("success").Inc()
	p.logger.Debug().Str("subject", p.subject).Str("analysis_id", ev.AnalysisID).Msg("event published")
	return nil
}

func (p *NATSPublisher) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return p.nc.FlushWithContext(ctx)
	}
	return p.nc.FlushTimeout(constants.ExternalAPITimeout)
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// New picks the NATS publisher when a server is configured and closes it
// with the application.
func New(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info().Msg("NATS_URL not set, analysis events disabled")
		return Noop{}, nil
	}

	pub, err := NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
	logger.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("analysis events enabled")
	return pub, nil
}
