package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/consistency"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/events"
	"github.com/fyrsmithlabs/convoscan/internal/evidence"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/fyrsmithlabs/convoscan/internal/reciprocity"
	"github.com/fyrsmithlabs/convoscan/internal/scoring"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InstrumentationName is the OpenTelemetry tracer name.
const InstrumentationName = "github.com/fyrsmithlabs/convoscan/internal/analysis"

const (
	DefaultCallThreshold = 50
	DefaultRiskFloor     = 95
)

// Config wires an Orchestrator. Zero values select defaults: the disabled
// model, the embedded lexicon and no event publishing.
type Config struct {
	LLM       llm.Completer
	Lexicon   *lexicon.Store
	Publisher events.Publisher
	Metrics   *Metrics
	Logger    *logging.Logger
	Tracer    trace.Tracer

	CallThreshold  int
	RiskFloor      int
	ForceHeuristic bool

	// Clock stamps results and synthetic free-text timestamps.
	Clock func() time.Time
	// NewID generates result ids.
	NewID func() string
}

// Orchestrator runs analyses. Safe for concurrent use.
type Orchestrator struct {
	normalizer *conversation.Normalizer
	detector   *flags.Detector
	enricher   *flags.Enricher
	scorer     *scoring.Scorer
	checker    *consistency.Checker
	publisher  events.Publisher
	metrics    *Metrics
	logger     *logging.Logger
	tracer     trace.Tracer

	callThreshold  int
	riskFloor      int
	forceHeuristic bool
	now            func() time.Time
	newID          func() string
}

// NewOrchestrator creates an Orchestrator from cfg.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.LLM == nil {
		cfg.LLM = llm.Disabled{}
	}
	if cfg.Lexicon == nil {
		cfg.Lexicon = lexicon.NewStaticStore(lexicon.MustCompileDefault())
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Noop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(InstrumentationName)
	}
	if cfg.CallThreshold <= 0 {
		cfg.CallThreshold = DefaultCallThreshold
	}
	if cfg.RiskFloor <= 0 {
		cfg.RiskFloor = DefaultRiskFloor
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	logger := cfg.Logger.Named("analysis")
	return &Orchestrator{
		normalizer: conversation.NewNormalizer(
			conversation.WithClock(cfg.Clock),
			conversation.WithLogger(logger),
		),
		detector:       flags.NewDetector(cfg.LLM, cfg.Lexicon, logger),
		enricher:       flags.NewEnricher(cfg.LLM, logger),
		scorer:         scoring.NewScorer(cfg.LLM, cfg.Lexicon, logger),
		checker:        consistency.NewChecker(cfg.LLM, logger),
		publisher:      cfg.Publisher,
		metrics:        cfg.Metrics,
		logger:         logger,
		tracer:         cfg.Tracer,
		callThreshold:  cfg.CallThreshold,
		riskFloor:      cfg.RiskFloor,
		forceHeuristic: cfg.ForceHeuristic,
		now:            cfg.Clock,
		newID:          cfg.NewID,
	}
}

// Analyze runs one analysis.
//
// Ambiguous dated logs yield an Outcome with NeedsRoleIdentifier set and a
// nil error. Input errors (conversation.ErrNoUsableMessages,
// conversation.ErrInvalidMessage, conversation.ErrUnknownFormat) are
// returned. Model failures never are.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	id := o.newID()
	ctx = logging.WithAnalysisID(ctx, id)
	ctx, span := o.tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(attribute.String("analysis.id", id)))
	defer span.End()

	state := StateIdle
	o.transition(ctx, &state, StateNormalizing)

	t, err := o.normalizer.Normalize(ctx, conversation.Input{
		Text:           req.Text,
		Messages:       req.Messages,
		RoleIdentifier: req.RoleIdentifier,
		Format:         req.Format,
	})
	if amb, ok := conversation.AsAmbiguity(err); ok {
		o.transition(ctx, &state, StateAwaitingRoleDisambiguation)
		o.metrics.countAnalysis("ambiguous")
		span.SetAttributes(attribute.Int("analysis.candidates", len(amb.Candidates)))
		return &Outcome{NeedsRoleIdentifier: true, CandidateSenders: amb.Candidates}, nil
	}
	if err != nil {
		o.metrics.countAnalysis("rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalization failed")
		o.logger.Info(ctx, "analysis rejected", zap.Error(err))
		return nil, fmt.Errorf("normalizing transcript: %w", err)
	}

	o.transition(ctx, &state, StateRunningPasses)
	forced := o.forceHeuristic || req.ForceHeuristic
	p := o.runPasses(ctx, t, forced)

	o.transition(ctx, &state, StateBinding)
	ev := evidence.Bind(ctx, t, p.flags, o.logger)

	res := &Result{
		ID:               id,
		CreatedAt:        o.now().UTC(),
		Messages:         t.Messages,
		RiskScore:        p.scores.RiskScore,
		TrustScore:       p.scores.TrustScore,
		EscalationIndex:  p.scores.EscalationIndex,
		Flags:            p.flags,
		Timeline:         p.scores.Timeline,
		Reciprocity:      p.reciprocity,
		Consistency:      p.consistency,
		SuggestedReplies: p.scores.SuggestedReplies,
		Evidence:         ev,
		Indicators:       t.Indicators,
		Provenance:       p.provenance,
	}
	o.transition(ctx, &state, StateComplete)

	o.metrics.countAnalysis("complete")
	o.metrics.countFlags(res.Flags)
	span.SetAttributes(append(provenanceAttrs(res.Provenance),
		attribute.Int("analysis.messages", len(res.Messages)),
		attribute.Int("analysis.flags", len(res.Flags)),
		attribute.Int("analysis.risk_score", res.RiskScore),
	)...)
	o.logger.Info(ctx, "analysis complete",
		zap.Int("messages", len(res.Messages)),
		zap.Int("flags", len(res.Flags)),
		zap.Int("evidence", len(res.Evidence)),
		zap.Int("risk_score", res.RiskScore),
		zap.Any("provenance", res.Provenance),
	)

	if err := o.publisher.PublishCompleted(ctx, res.ID, res); err != nil {
		o.logger.Warn(ctx, "failed to publish analysis", zap.Error(err))
	}
	return &Outcome{Result: res}, nil
}

// SenderNames lists the distinct dated-log senders in text.
func (o *Orchestrator) SenderNames(text string) ([]string, error) {
	return conversation.SenderNames(text)
}

type passOutputs struct {
	flags       []flags.Flag
	scores      scoring.Scores
	reciprocity reciprocity.Metrics
	consistency consistency.Report
	provenance  map[string]Provenance
}

// runPasses fans out the four passes and joins them. Each goroutine writes
// only its own slot. The scoring heuristic needs final flags, so the scoring
// fallback is settled after the join.
func (o *Orchestrator) runPasses(ctx context.Context, t *conversation.Transcript, forced bool) passOutputs {
	var wg sync.WaitGroup

	var flagsOut []flags.Flag
	var detectProv, enrichProv Provenance

	var modelScores scoring.Scores
	var scoreErr error

	var recip reciprocity.Metrics

	var report consistency.Report
	var reportProv Provenance

	wg.Add(4)
	go func() {
		defer wg.Done()
		flagsOut, detectProv, enrichProv = o.flagPass(ctx, t, forced)
	}()
	go func() {
		defer wg.Done()
		modelScores, scoreErr = try(ctx, o, PassScoring, forced, func(ctx context.Context) (scoring.Scores, error) {
			return o.scorer.Score(ctx, t)
		})
	}()
	go func() {
		defer wg.Done()
		recip = reciprocity.Calculate(t.Messages)
	}()
	go func() {
		defer wg.Done()
		rep, err := try(ctx, o, PassConsistency, forced, func(ctx context.Context) (consistency.Report, error) {
			return o.checker.Check(ctx, t)
		})
		report, reportProv = settle(ctx, o, PassConsistency, rep, err, func() consistency.Report {
			return consistency.Heuristic(t)
		})
	}()
	wg.Wait()

	scores, scoreProv := settle(ctx, o, PassScoring, modelScores, scoreErr, func() scoring.Scores {
		return o.scorer.Heuristic(t, flagsOut)
	})
	if flags.StalkingTriggered(t.Indicators, o.callThreshold) {
		scores.ApplyRiskFloor(o.riskFloor)
	}

	return passOutputs{
		flags:       flagsOut,
		scores:      scores,
		reciprocity: recip,
		consistency: report,
		provenance: map[string]Provenance{
			PassFlags:       detectProv,
			PassEnrichment:  enrichProv,
			PassScoring:     scoreProv,
			PassConsistency: reportProv,
		},
	}
}

// flagPass detects, prepends indicator flags, numbers and enriches.
func (o *Orchestrator) flagPass(ctx context.Context, t *conversation.Transcript, forced bool) ([]flags.Flag, Provenance, Provenance) {
	detected, err := try(ctx, o, PassFlags, forced, func(ctx context.Context) ([]flags.Flag, error) {
		return o.detector.Detect(ctx, t)
	})
	detected, detectProv := settle(ctx, o, PassFlags, detected, err, func() []flags.Flag {
		return o.detector.Heuristic(t)
	})

	all := append(flags.FromIndicators(t, o.callThreshold), detected...)
	flags.Number(all)

	stats := flags.StatsFor(t)
	enriched, err := try(ctx, o, PassEnrichment, forced, func(ctx context.Context) ([]flags.Flag, error) {
		return o.enricher.Enrich(ctx, all, stats)
	})
	enriched, enrichProv := settle(ctx, o, PassEnrichment, enriched, err, func() []flags.Flag {
		return flags.EnrichHeuristic(all)
	})
	return enriched, detectProv, enrichProv
}

func (o *Orchestrator) transition(ctx context.Context, state *State, next State) {
	o.logger.Debug(ctx, "analysis state",
		zap.String("from", string(*state)),
		zap.String("to", string(next)),
	)
	*state = next
}

// IsInputError reports whether err is caused by the caller's input.
func IsInputError(err error) bool {
	return errors.Is(err, conversation.ErrNoUsableMessages) ||
		errors.Is(err, conversation.ErrInvalidMessage) ||
		errors.Is(err, conversation.ErrUnknownFormat)
}
