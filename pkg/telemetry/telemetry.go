package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlphttp"
)

type Config struct {
	Exporter string        `envconfig:"METRICS_EXPORTER" default:"none"`
	Endpoint string        `envconfig:"METRICS_ENDPOINT"`
	Insecure bool          `envconfig:"METRICS_INSECURE" default:"false"`
	Interval time.Duration `envconfig:"METRICS_INTERVAL" default:"60s"`
}

// ShutdownFunc flushes and stops the meter provider.
type ShutdownFunc func(context.Context) error

// NewMeterProvider builds the meter provider for cfg and installs it globally.
// The "none" exporter returns a no-op provider.
func NewMeterProvider(ctx context.Context, cfg Config) (metric.MeterProvider, ShutdownFunc, error) {
	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if exp == nil {
		mp := noop.NewMeterProvider()
		return mp, func(context.Context) error { return nil }, nil
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...)),
	)
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Exporter)) {
	case ExporterNone, "":
		return nil, nil
	case ExporterStdout:
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case ExporterOTLPHTTP:
		var opts []otlpmetrichttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported metric exporter type: %s", cfg.Exporter)
	}
}
