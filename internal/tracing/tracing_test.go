package tracing_test

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/qa21t02/dbjourney/internal/config"
	"github.com/qa21t02/dbjourney/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func boolPtr(v bool) *bool { return &v }

func TestInit(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	tests := []struct {
		name          string
		cfg           config.TracingConfig
		wantErr       bool
		wantPropagate bool
	}{
		{name: "disabled by default", cfg: config.TracingConfig{}},
		{
			name:          "propagation without export",
			cfg:           config.TracingConfig{Propagate: boolPtr(true)},
			wantPropagate: true,
		},
		{
			name:          "grpc exporter",
			cfg:           config.TracingConfig{Endpoint: "localhost:4317", Protocol: "grpc", ServiceName: "journey-test", SampleRate: 1, Insecure: true},
			wantPropagate: true,
		},
		{
			name:          "http exporter",
			cfg:           config.TracingConfig{Endpoint: "localhost:4318", Protocol: "HTTP", SampleRate: 0.25, Insecure: true},
			wantPropagate: true,
		},
		{
			name:          "never sample",
			cfg:           config.TracingConfig{Endpoint: "localhost:4317", Insecure: true},
			wantPropagate: true,
		},
		{
			name: "propagation explicitly off",
			cfg:  config.TracingConfig{Endpoint: "localhost:4317", Insecure: true, SampleRate: 1, Propagate: boolPtr(false)},
		},
		{name: "unsupported protocol", cfg: config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift", SampleRate: 1}, wantErr: true},
		{name: "negative sample rate", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: -0.5}, wantErr: true},
		{name: "sample rate above one", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tracing.Init(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
			if got := p.ShouldPropagate(); got != tt.wantPropagate {
				t.Errorf("ShouldPropagate() = %v, want %v", got, tt.wantPropagate)
			}
			_, span := p.Tracer().Start(context.Background(), "probe")
			span.End()
		})
	}
}

func TestInitReadsEndpointFromEnvironment(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Insecure: true, SampleRate: 1})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	if !p.ShouldPropagate() {
		t.Error("an endpoint from the environment should enable propagation")
	}
	if _, ok := p.Tracer().(noop.Tracer); ok {
		t.Error("expected an exporting tracer")
	}
}

func TestDisabledProviderUsesNoopTracer(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	_, span := p.Tracer().Start(context.Background(), "probe")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled provider should not produce sampled spans")
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() {
		t.Error("nil provider ShouldPropagate() = true, want false")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "probe")
	span.End()
}

func TestStartStepSpan(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	tests := []struct {
		name         string
		step         string
		method       string
		wantSpanName string
	}{
		{"named step", "registration", http.MethodPost, "POST registration"},
		{"unnamed step", "", http.MethodGet, "GET request"},
		{"database step", "go-to-database", http.MethodGet, "GET go-to-database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			_, span := tracing.StartStepSpan(context.Background(), tracer, tt.step, tt.method, "http://localhost:7000/x")
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			if got := spans[0].Name; got != tt.wantSpanName {
				t.Errorf("span name = %q, want %q", got, tt.wantSpanName)
			}
			if spans[0].SpanKind != trace.SpanKindClient {
				t.Errorf("span kind = %v, want client", spans[0].SpanKind)
			}

			foundMethod := false
			for _, attr := range spans[0].Attributes {
				if string(attr.Key) == "http.request.method" && attr.Value.AsString() == tt.method {
					foundMethod = true
				}
			}
			if !foundMethod {
				t.Errorf("http.request.method attribute not found or incorrect")
			}
		})
	}
}

func TestSessionSpanParentsSteps(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	ctx, session := tracing.StartSessionSpan(context.Background(), tracer, "1@testv.com")
	_, step := tracing.StartStepSpan(ctx, tracer, "go-to-home", http.MethodGet, "http://localhost:7000/")
	tracing.RecordCheck(step, "Load home page", false)
	tracing.EndSpan(step, nil)
	tracing.EndSpan(session, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	stepSpan, sessionSpan := spans[0], spans[1]
	if stepSpan.Parent.SpanID() != sessionSpan.SpanContext.SpanID() {
		t.Errorf("step span is not a child of the session span")
	}
	if len(stepSpan.Events) != 1 || stepSpan.Events[0].Name != "check" {
		t.Fatalf("expected one check event, got %+v", stepSpan.Events)
	}
	passed := true
	for _, attr := range stepSpan.Events[0].Attributes {
		if string(attr.Key) == "dbjourney.check.passed" {
			passed = attr.Value.AsBool()
		}
	}
	if passed {
		t.Errorf("expected failed check to be recorded")
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-error")
	tracing.EndSpan(span, context.DeadlineExceeded)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
}

func TestEndSpanOk(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-ok")
	tracing.EndSpan(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("span status code = %d, want %d (Ok)", spans[0].Status.Code, codes.Ok)
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "test-inject")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	got := headers.Get("Traceparent")
	if got == "" {
		t.Error("traceparent header not injected")
	}
	// traceparent format: version-traceid-spanid-flags (e.g., 00-abc123...-def456...-01)
	if len(got) < 55 {
		t.Errorf("traceparent header too short: %q", got)
	}
}

func TestInjectHTTPHeadersNoSpan(t *testing.T) {
	// Without a span in context, injection should not panic and not set traceparent
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
	))
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)

	got := headers.Get("Traceparent")
	if got != "" {
		t.Errorf("traceparent header should be empty without span, got %q", got)
	}
}
