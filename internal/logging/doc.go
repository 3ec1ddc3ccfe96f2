// Package logging provides structured logging with OpenTelemetry integration.
//
// Logger wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - dual output (stdout and an OpenTelemetry log bridge)
//   - context field injection (trace_id, analysis.id, request.id, pass)
//   - redaction of transcript text and credentials
//   - level-aware sampling (errors are never sampled)
//
// Transcript content is sensitive. Fields named content, quote, transcript
// or text are redacted by the stdout encoder, so call sites may attach them
// while debugging without leaking conversations into production logs.
//
// Usage:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithAnalysisID(ctx, id)
//	logger.Info(ctx, "analysis complete", zap.Int("flags", n))
package logging
