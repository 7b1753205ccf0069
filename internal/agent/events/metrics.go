package events

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/charliechat-core/server/internal/agent/events"

// Metrics counts turns per path and records turn latency.
type Metrics struct {
	turns    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewMetrics registers the turn instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	turns, err := meter.Int64Counter("chat.turns",
		metric.WithDescription("Turns processed, by answer path."),
		metric.WithUnit("{turn}"))
	if err != nil {
		return nil, fmt.Errorf("create turns counter: %w", err)
	}
	failures, err := meter.Int64Counter("chat.generation.failures",
		metric.WithDescription("Turns whose generation call failed."),
		metric.WithUnit("{turn}"))
	if err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	latency, err := meter.Float64Histogram("chat.turn.duration",
		metric.WithDescription("End-to-end turn latency."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create latency histogram: %w", err)
	}
	return &Metrics{turns: turns, failures: failures, latency: latency}, nil
}

func (m *Metrics) record(ctx context.Context, t Turn) {
	attrs := metric.WithAttributes(attribute.String("path", string(t.Path)))
	m.turns.Add(ctx, 1, attrs)
	m.latency.Record(ctx, t.Duration.Seconds(), attrs)
}

func (m *Metrics) TurnCompleted(ctx context.Context, t Turn) { m.record(ctx, t) }

func (m *Metrics) TurnFailed(ctx context.Context, t Turn) {
	m.record(ctx, t)
	m.failures.Add(ctx, 1)
}

func (m *Metrics) DirectResponse(ctx context.Context, t Turn) { m.record(ctx, t) }

func (m *Metrics) Clarified(ctx context.Context, t Turn) { m.record(ctx, t) }
