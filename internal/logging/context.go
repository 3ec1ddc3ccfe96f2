package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if id := AnalysisIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("analysis.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if pass := PassFromContext(ctx); pass != "" {
		fields = append(fields, zap.String("pass", pass))
	}

	return fields
}

type analysisCtxKey struct{}
type requestCtxKey struct{}
type passCtxKey struct{}
type loggerCtxKey struct{}

// WithAnalysisID tags ctx with the id of the analysis being produced.
func WithAnalysisID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, analysisCtxKey{}, id)
}

// AnalysisIDFromContext returns the analysis id, or "".
func AnalysisIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(analysisCtxKey{}).(string)
	return s
}

// WithRequestID tags ctx with the transport-level request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(requestCtxKey{}).(string)
	return s
}

// WithPass tags ctx with the analysis pass currently running.
func WithPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, passCtxKey{}, pass)
}

// PassFromContext returns the pass name, or "".
func PassFromContext(ctx context.Context) string {
	s, _ := ctx.Value(passCtxKey{}).(string)
	return s
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
