package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"pcareport/internal/config"
)

const (
	ServiceName    = "pca-report"
	ServiceVersion = "1.0.0"
	MeterName      = "pcareport"
)

// Telemetry holds the tracer and meter for one report run. Spans are
// written as JSON to the trace file; metrics are gathered into a private
// Prometheus registry and written as a textfile on Shutdown.
type Telemetry struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *RunMetrics

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *promclient.Registry
	traceFile      *os.File
	metricsFile    string
	logger         *slog.Logger
}

// RunMetrics are the instruments recorded by the analysis stages.
type RunMetrics struct {
	StageDuration   metric.Float64Histogram
	StageErrors     metric.Int64Counter
	RowsLoaded      metric.Int64Counter
	RowsDropped     metric.Int64Counter
	FiguresRendered metric.Int64Counter
}

// InitializeTelemetry sets up tracing and metrics according to cfg.
// Disabled signals fall back to no-op providers so callers never nil-check.
func InitializeTelemetry(ctx context.Context, cfg config.TelemetryConfig, paths *config.Paths, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	t := &Telemetry{logger: logger}

	if cfg.EnableTracing {
		if err := t.initializeTracing(cfg, paths.TraceFile, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.Tracer = tracenoop.NewTracerProvider().Tracer(MeterName)
	}

	if cfg.EnableMetrics {
		if err := t.initializeMetrics(res); err != nil {
			t.closeTraceFile()
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		t.metricsFile = paths.MetricsFile
	} else {
		t.Meter = metricnoop.NewMeterProvider().Meter(MeterName)
	}

	metrics, err := createRunMetrics(t.Meter)
	if err != nil {
		t.closeTraceFile()
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}
	t.Metrics = metrics

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return t, nil
}

// initializeTracing sets up a synchronous stdout exporter writing to path
func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, path string, res *resource.Resource) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.traceFile = file
	t.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	t.Tracer = t.tracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	return nil
}

// initializeMetrics wires an OTel meter provider to a Prometheus registry
func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.registry = registry
	t.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.meterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	return nil
}

func createRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"pca_stage_duration",
		metric.WithDescription("Analysis stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"pca_stage_errors",
		metric.WithDescription("Number of failed analysis stages"),
	)
	if err != nil {
		return nil, err
	}

	rowsLoaded, err := meter.Int64Counter(
		"pca_rows_loaded",
		metric.WithDescription("Specimen rows read from the input dataset"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"pca_rows_dropped",
		metric.WithDescription("Specimen rows removed for missing values"),
	)
	if err != nil {
		return nil, err
	}

	figuresRendered, err := meter.Int64Counter(
		"pca_figures_rendered",
		metric.WithDescription("Figures written to disk"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		StageDuration:   stageDuration,
		StageErrors:     stageErrors,
		RowsLoaded:      rowsLoaded,
		RowsDropped:     rowsDropped,
		FiguresRendered: figuresRendered,
	}, nil
}

// RecordStage records the duration of a stage and whether it failed.
func (t *Telemetry) RecordStage(ctx context.Context, stage string, seconds float64, failed bool) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	t.Metrics.StageDuration.Record(ctx, seconds, attrs)
	if failed {
		t.Metrics.StageErrors.Add(ctx, 1, attrs)
	}
}

// Registry exposes the Prometheus registry backing the meter, nil when metrics are disabled.
func (t *Telemetry) Registry() *promclient.Registry {
	return t.registry
}

// Shutdown flushes spans, writes the metrics textfile and closes files.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}

	if t.registry != nil && t.metricsFile != "" {
		if err := promclient.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}

	if err := t.closeTraceFile(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		t.logger.DebugContext(ctx, "Telemetry shut down")
	}
	return errors.Join(errs...)
}

func (t *Telemetry) closeTraceFile() error {
	if t.traceFile == nil {
		return nil
	}
	err := t.traceFile.Close()
	t.traceFile = nil
	return err
}
