// Package tracing configures the global OpenTelemetry tracer provider with
// an OTLP/HTTP exporter. The gateway's tracing middleware picks the
// provider up through the otel globals.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
)

func init() {
	core.RegisterModule(&Tracing{})
}

// Config holds tracing configuration. Endpoint is host:port of the OTLP
// HTTP collector.
type Config struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "127.0.0.1:4318"
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
	if c.ServiceName == "" {
		c.ServiceName = "knowd"
	}
}

// Tracing is the OpenTelemetry setup module.
type Tracing struct {
	config   Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (t *Tracing) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "obs.tracing",
		New: func() core.Module { return &Tracing{} },
	}
}

// Configure implements core.Configurable.
func (t *Tracing) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return err
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Tracing) Provision(ctx *core.AppContext) error {
	t.logger = ctx.Logger
	return nil
}

// Start implements core.Starter. It installs the global tracer provider.
func (t *Tracing) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.config.Endpoint)}
	if t.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(t.config.ServiceName),
	))
	if err != nil {
		return fmt.Errorf("tracing: build resource: %w", err)
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.config.SampleRatio))),
	)

	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.logger.Info("tracing enabled", "endpoint", t.config.Endpoint, "sample_ratio", t.config.SampleRatio)
	return nil
}

// Stop implements core.Stopper. It flushes pending spans.
func (t *Tracing) Stop(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
