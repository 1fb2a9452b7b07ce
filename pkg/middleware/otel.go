package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderfood-dev/orderfood/pkg/dispatch"
)

// Default tracer name for the interaction layer.
const defaultTracerName = "orderfood"

// OTelConfig configures the tracing middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "orderfood").
	TracerName string

	// Attributes are added to every action span.
	Attributes []attribute.KeyValue
}

// OTelOption configures the tracing middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) { c.Attributes = append(c.Attributes, attrs...) }
}

// OTel returns dispatch middleware that wraps each action in a span named
// after the action ("reject:42"). Cancellations and validation failures are
// recorded as events, not span errors; only request failures mark the span
// failed.
func OTel(opts ...OTelOption) dispatch.Middleware {
	cfg := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	tracer := otel.Tracer(cfg.TracerName)

	return func(ctx context.Context, name string, next func(context.Context) error) error {
		ctx, span := tracer.Start(ctx, "action "+name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(cfg.Attributes...),
		)
		defer span.End()

		err := next(ctx)
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case isUserOutcome(err):
			span.AddEvent("not_sent", trace.WithAttributes(
				attribute.String("reason", err.Error()),
			))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func isUserOutcome(err error) bool {
	return errors.Is(err, dispatch.ErrUserCancelled) ||
		errors.Is(err, dispatch.ErrValidationFailed) ||
		errors.Is(err, dispatch.ErrAlreadyInFlight)
}
