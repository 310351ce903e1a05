package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartSessionSpan starts the root span of one journey session.
func StartSessionSpan(ctx context.Context, tracer trace.Tracer, login string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "journey session",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	if login != "" {
		span.SetAttributes(attribute.String("dbjourney.login", login))
	}
	return ctx, span
}

// StartStepSpan starts a client span for one request of a journey step.
func StartStepSpan(ctx context.Context, tracer trace.Tracer, step, method, url string) (context.Context, trace.Span) {
	spanName := method + " " + step
	if step == "" {
		spanName = method + " request"
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", url),
	)
	if step != "" {
		span.SetAttributes(attribute.String("dbjourney.step", step))
	}
	return ctx, span
}

// RecordCheck attaches a check outcome to span as an event.
func RecordCheck(span trace.Span, name string, passed bool) {
	span.AddEvent("check", trace.WithAttributes(
		attribute.String("dbjourney.check", name),
		attribute.Bool("dbjourney.check.passed", passed),
	))
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
