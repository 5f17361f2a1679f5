package observability

import (
	"context"
	"strings"
	"sync"
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

	"github.com/yungbote/library-backend/internal/platform/envutil"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/library-backend"
	defaultServiceName = "library-backend"
	defaultSampleRatio = 0.1
)

// OtelConfig controls span export. With no Endpoint spans go to stdout.
type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Version     string  `yaml:"version"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Headers     string  `yaml:"headers"`
}

// OtelConfigFromEnv layers OTEL_* variables over base.
func OtelConfigFromEnv(base OtelConfig) OtelConfig {
	cfg := base
	cfg.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Enabled)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Endpoint)
	cfg.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Insecure)
	cfg.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Headers)
	if raw := envutil.String("OTEL_SAMPLER_RATIO", ""); raw != "" {
		cfg.SampleRatio = parseRatio(raw, cfg.SampleRatio)
	}
	return cfg
}

func (c OtelConfig) serviceName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return defaultServiceName
}

// sampler samples root spans at the configured ratio and follows the parent
// decision otherwise.
func (c OtelConfig) sampler() sdktrace.Sampler {
	ratio := c.SampleRatio
	switch {
	case ratio <= 0:
		ratio = defaultSampleRatio
	case ratio > 1:
		ratio = 1
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func (c OtelConfig) resource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(c.serviceName()),
		semconv.ServiceVersionKey.String(strings.TrimSpace(c.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(c.Environment)),
	))
}

func (c OtelConfig) exporter(ctx context.Context) (sdktrace.SpanExporter, string, error) {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		return exp, "stdout", err
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if h := splitHeaders(c.Headers); len(h) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(h))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	return exp, "otlp:" + endpoint, err
}

var (
	tracingOnce     sync.Once
	tracingShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider once and returns its shutdown
// func, which is nil when tracing is disabled. Resource or exporter failures
// are logged and tracing continues without them.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	tracingOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		if log == nil {
			log = logger.Nop()
		}

		opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(cfg.sampler())}

		res, err := cfg.resource(ctx)
		if err != nil {
			log.Warn("otel resource incomplete", "error", err)
		}
		if res != nil {
			opts = append(opts, sdktrace.WithResource(res))
		}

		exp, target, err := cfg.exporter(ctx)
		switch {
		case err != nil:
			log.Warn("otel exporter unavailable, spans will not be exported", "target", target, "error", err)
		case exp != nil:
			opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		tracingShutdown = tp.Shutdown

		log.Info("otel tracing enabled", "service", cfg.serviceName(), "target", target)
	})
	return tracingShutdown
}

// Tracer is a no-op tracer until InitOTel runs.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// splitHeaders parses "k1=v1,k2=v2", skipping pairs with an empty side.
func splitHeaders(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if ok && key != "" && val != "" {
			out[key] = val
		}
	}
	return out
}
