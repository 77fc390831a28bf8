package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/microlearn-backend"
	defaultServiceName = "microlearn-backend"
	defaultSampleRatio = 0.1
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Endpoint is host:port of an OTLP/HTTP collector. Empty exports to stdout.
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

func noopShutdown(context.Context) error { return nil }

// InitOTel installs a global tracer provider when tracing is enabled and returns its
// shutdown. Tracing problems are logged and never stop the service from starting.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	if !cfg.Enabled {
		return noopShutdown
	}
	tp, err := newTracerProvider(ctx, cfg, os.Stdout)
	if err != nil {
		log.Warn("Tracing disabled", "error", err)
		return noopShutdown
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	log.Info("Tracing enabled", "service", serviceName(cfg), "endpoint", cfg.Endpoint, "sample_ratio", sampleRatio(cfg.SampleRatio))
	return tp.Shutdown
}

// newTracerProvider exports to the OTLP endpoint when one is set, otherwise to stdout.
func newTracerProvider(ctx context.Context, cfg OtelConfig, stdout io.Writer) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName(cfg)),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(stdout))
	}
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	), nil
}

// Tracer returns the service tracer from whatever provider is installed.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func serviceName(cfg OtelConfig) string {
	if s := strings.TrimSpace(cfg.ServiceName); s != "" {
		return s
	}
	return defaultServiceName
}

func sampleRatio(r float64) float64 {
	switch {
	case r <= 0:
		return defaultSampleRatio
	case r > 1:
		return 1
	default:
		return r
	}
}
