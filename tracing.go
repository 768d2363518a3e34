package kurir

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ambiyansyah-risyal/kurir"

func (c *Client) tracer() trace.Tracer {
	tp := c.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName, trace.WithInstrumentationVersion(Version))
}

func (c *Client) textMapPropagator() propagation.TextMapPropagator {
	if c.propagator != nil {
		return c.propagator
	}
	return otel.GetTextMapPropagator()
}

// startSpan opens a client span for the dispatch and injects the trace
// context into the outgoing headers.
func (c *Client) startSpan(ctx context.Context, cfg *Config, endpoint string) (context.Context, trace.Span) {
	method := strings.ToUpper(cfg.method())
	ctx, span := c.tracer().Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("server.address", endpoint),
		),
	)
	if full, err := cfg.FullURL(); err == nil {
		span.SetAttributes(attribute.String("url.full", full))
	}

	if cfg.Headers == nil {
		cfg.Headers = make(Headers)
	}
	c.textMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(cfg.Headers)))
	return ctx, span
}

func endSpan(span trace.Span, resp *Response, attempts int, err error) {
	status := 0
	if resp != nil {
		status = resp.Status
	} else {
		status = statusOf(err)
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if attempts > 1 {
		span.SetAttributes(attribute.Int("http.request.resend_count", attempts-1))
	}

	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			span.SetAttributes(attribute.String("error.type", string(e.Code)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
