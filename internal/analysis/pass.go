package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrPassPanicked wraps a panic recovered from a pass.
	ErrPassPanicked = errors.New("analysis pass panicked")

	errForced = errors.New("heuristic forced")
)

// attempt runs fn once, converting a panic into an error.
func attempt[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrPassPanicked, r)
		}
	}()
	return fn(ctx)
}

// orElse returns v, or fallback's value when err is non-nil.
func orElse[T any](v T, err error, fallback func() T) (T, Provenance) {
	if err != nil {
		return fallback(), ProvenanceHeuristic
	}
	return v, ProvenanceModel
}

// try runs a model-backed pass under a span, timing it. When heuristics are
// forced fn is never called.
func try[T any](ctx context.Context, o *Orchestrator, pass string, forced bool, fn func(context.Context) (T, error)) (T, error) {
	if forced {
		var zero T
		return zero, errForced
	}

	ctx = logging.WithPass(ctx, pass)
	ctx, span := o.tracer.Start(ctx, "analysis.pass."+pass)
	defer span.End()

	start := time.Now()
	v, err := attempt(ctx, fn)
	o.metrics.observeDuration(pass, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pass failed")
	}
	return v, err
}

// settle applies orElse, logging and counting any fallback.
func settle[T any](ctx context.Context, o *Orchestrator, pass string, v T, err error, fallback func() T) (T, Provenance) {
	out, p := orElse(v, err, fallback)
	o.metrics.countPass(pass, p)

	if err != nil {
		reason := fallbackReason(err)
		o.metrics.countFallback(pass, reason)
		fields := []zap.Field{zap.String("pass", pass), zap.String("reason", reason)}
		switch reason {
		case "forced", "unavailable":
			o.logger.Debug(ctx, "heuristic substituted", fields...)
		default:
			o.logger.Warn(ctx, "heuristic substituted", append(fields, zap.Error(err))...)
		}
	}
	return out, p
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errForced):
		return "forced"
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrPassPanicked):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

func provenanceAttrs(prov map[string]Provenance) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(prov))
	for pass, p := range prov {
		attrs = append(attrs, attribute.String("provenance."+pass, string(p)))
	}
	return attrs
}
