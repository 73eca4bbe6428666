package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/fallback"
	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/metrics"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/pkg/types"
)

// Consumer-side views of the stages the pipeline drives.
type (
	textEmbedder interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}
	templateGenerator interface {
		Generate(ctx context.Context, src generator.Source) (*generator.GenerationResult, error)
		Prefill(ctx context.Context, query string, vars []types.Variable) (map[string]types.PrefillValue, error)
	}
	candidateFinder interface {
		Match(ctx context.Context, embedding []float32, k int) ([]types.MatchCandidate, error)
	}
	qualityGate interface {
		Evaluate(ctx context.Context, query string, candidates []types.MatchCandidate) (*types.MatchDecision, error)
		CheckDuplicate(candidates []types.MatchCandidate) *types.MatchCandidate
	}
	fallbackRunner interface {
		Run(ctx context.Context, query string, report types.Reporter) (*fallback.Result, error)
	}
)

// Config tunes the pipeline.
type Config struct {
	TopK           int
	DuplicateFloor float64
	AllowFallback  bool

	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.DuplicateFloor <= 0 {
		c.DuplicateFloor = 0.90
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 30 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 120 * time.Second
	}
	return c
}

// Pipeline coordinates ingest and match flows across the capability stages.
type Pipeline struct {
	embedder  textEmbedder
	generator templateGenerator
	matcher   candidateFinder
	gate      qualityGate
	fallback  fallbackRunner
	store     store.Store
	config    Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New wires a pipeline. fb may be nil when web fallback is disabled;
// metrics may be nil.
func New(
	emb textEmbedder,
	gen templateGenerator,
	m candidateFinder,
	g qualityGate,
	fb fallbackRunner,
	s store.Store,
	config Config,
	met *metrics.Metrics,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		embedder:  emb,
		generator: gen,
		matcher:   m,
		gate:      g,
		fallback:  fb,
		store:     s,
		config:    config.withDefaults(),
		metrics:   met,
		logger:    logger,
	}
}

// IngestRequest is a document to turn into a stored template.
type IngestRequest struct {
	SourceText string
	// Name overrides the generated template name when set.
	Name string
	// DocType overrides the generated doc type when set.
	DocType string
}

// IngestResult reports what the ingest produced.
type IngestResult struct {
	Template *types.Template
	// Created is false when the document collapsed onto an existing
	// near-duplicate template.
	Created bool
}

// Ingest turns a source document into a stored template. Generation and
// embedding run concurrently; the join waits for both even when one fails,
// and a combined failure reports the embedding error first.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest, report types.Reporter) (*IngestResult, error) {
	emit(report, types.StageReceived, "")
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, p.fail(report, "ingest", fmt.Errorf("%w: empty source text", types.ErrInvalidInput))
	}

	type genOut struct {
		res *generator.GenerationResult
		err error
	}
	type embOut struct {
		vector []float32
		err    error
	}
	genCh := make(chan genOut, 1)
	embCh := make(chan embOut, 1)

	emit(report, types.StageEmbedding, "")
	go func() {
		ectx, cancel := context.WithTimeout(ctx, p.config.EmbedTimeout)
		defer cancel()
		start := time.Now()
		vector, err := p.embedder.Embed(ectx, req.SourceText)
		p.metrics.ObserveStage("embed", time.Since(start))
		embCh <- embOut{vector: vector, err: err}
	}()

	emit(report, types.StageGenerating, "")
	go func() {
		gctx, cancel := context.WithTimeout(ctx, p.config.GenerateTimeout)
		defer cancel()
		start := time.Now()
		res, err := p.generator.Generate(gctx, generator.Source{
			Text:   req.SourceText,
			Hint:   req.DocType,
			Origin: types.SourceUpload,
		})
		p.metrics.ObserveStage("generate", time.Since(start))
		genCh <- genOut{res: res, err: err}
	}()

	// Join waits for both branches regardless of individual failures.
	gen := <-genCh
	emb := <-embCh
	if emb.err != nil {
		p.metrics.IngestOutcome("error")
		return nil, p.fail(report, "ingest embed", emb.err)
	}
	if gen.err != nil {
		p.metrics.IngestOutcome("error")
		return nil, p.fail(report, "ingest generate", gen.err)
	}

	tpl := gen.res.Template(generator.Source{Origin: types.SourceUpload})
	if req.Name != "" {
		tpl.Name = req.Name
	}
	if req.DocType != "" {
		tpl.DocType = req.DocType
	}
	tpl.Embedding = emb.vector

	// Duplicate gate before the write; the store re-checks inside its
	// transaction so a concurrent commit still collapses to one winner.
	emit(report, types.StageMatching, "duplicate check")
	candidates, err := p.matcher.Match(ctx, emb.vector, p.config.TopK)
	if err != nil {
		p.metrics.IngestOutcome("error")
		return nil, p.fail(report, "ingest duplicate check", err)
	}
	if dup := p.gate.CheckDuplicate(candidates); dup != nil {
		p.logger.Info("ingest collapsed onto existing template",
			zap.String("template_id", dup.Template.ID),
			zap.Float64("similarity", dup.Similarity))
		p.metrics.IngestOutcome("duplicate")
		emit(report, types.StageDone, "duplicate of "+dup.Template.ID)
		return &IngestResult{Template: dup.Template, Created: false}, nil
	}

	winner, created, err := p.store.CreateTemplateIfUnique(ctx, tpl, p.config.DuplicateFloor)
	if err != nil {
		p.metrics.IngestOutcome("error")
		return nil, p.fail(report, "ingest store", err)
	}
	if created {
		p.metrics.IngestOutcome("created")
	} else {
		p.metrics.IngestOutcome("duplicate")
	}

	emit(report, types.StageDone, winner.ID)
	return &IngestResult{Template: winner, Created: created}, nil
}

// MatchRequest is a drafting query to resolve against stored templates.
type MatchRequest struct {
	Query string
	// TopK overrides the configured candidate count when positive.
	TopK int
	// DisableFallback suppresses the web fallback for this request only.
	DisableFallback bool
}

// MatchResult is an accepted template plus the questions needed to fill it.
type MatchResult struct {
	Template *types.Template
	Decision *types.MatchDecision
	// Questions holds one entry per template variable, prefilled from the
	// query where the generator could extract a valid value.
	Questions []types.Question
	// FromFallback is true when the template came from the web rather
	// than the store.
	FromFallback bool
	// FallbackCreated is true when the fallback stored a new template.
	FallbackCreated bool
}

// Match resolves a drafting query: embed, retrieve, gate, and on rejection
// fall back to the web when enabled. ErrNoMatchFound surfaces only when the
// fallback is unavailable or disabled.
func (p *Pipeline) Match(ctx context.Context, req MatchRequest, report types.Reporter) (*MatchResult, error) {
	emit(report, types.StageReceived, "")
	if strings.TrimSpace(req.Query) == "" {
		return nil, p.fail(report, "match", fmt.Errorf("%w: empty query", types.ErrInvalidInput))
	}
	topK := req.TopK
	if topK <= 0 {
		topK = p.config.TopK
	}

	emit(report, types.StageEmbedding, "")
	ectx, cancel := context.WithTimeout(ctx, p.config.EmbedTimeout)
	start := time.Now()
	vector, err := p.embedder.Embed(ectx, req.Query)
	cancel()
	p.metrics.ObserveStage("embed", time.Since(start))
	if err != nil {
		p.metrics.MatchOutcome("error")
		return nil, p.fail(report, "match embed", err)
	}

	emit(report, types.StageMatching, "")
	candidates, err := p.matcher.Match(ctx, vector, topK)
	if err != nil {
		p.metrics.MatchOutcome("error")
		return nil, p.fail(report, "match search", err)
	}
	gctx, gcancel := context.WithTimeout(ctx, p.config.GenerateTimeout)
	decision, err := p.gate.Evaluate(gctx, req.Query, candidates)
	gcancel()
	if err != nil {
		p.metrics.MatchOutcome("error")
		return nil, p.fail(report, "match gate", err)
	}

	if decision.Accepted {
		questions, err := p.deriveQuestions(ctx, req.Query, decision.Template)
		if err != nil {
			p.metrics.MatchOutcome("error")
			return nil, p.fail(report, "match questions", err)
		}
		p.metrics.MatchOutcome("accepted")
		emit(report, types.StageDone, decision.Template.ID)
		return &MatchResult{
			Template:  decision.Template,
			Decision:  decision,
			Questions: questions,
		}, nil
	}

	p.logger.Info("no stored template accepted",
		zap.String("reason", decision.Reason),
		zap.Float64("similarity", decision.Similarity),
		zap.Float64("confidence", decision.Confidence))

	if req.DisableFallback || !p.config.AllowFallback || p.fallback == nil {
		p.metrics.MatchOutcome("rejected")
		return nil, p.fail(report, "match", fmt.Errorf("%w: %s", types.ErrNoMatchFound, decision.Reason))
	}

	res, err := p.fallback.Run(ctx, req.Query, report)
	if err != nil {
		p.metrics.MatchOutcome("error")
		p.metrics.FallbackOutcome(fallbackOutcome(err))
		return nil, p.fail(report, "match fallback", err)
	}
	if res.Created {
		p.metrics.FallbackOutcome("created")
	} else {
		p.metrics.FallbackOutcome("duplicate")
	}

	questions, err := p.deriveQuestions(ctx, req.Query, res.Template)
	if err != nil {
		p.metrics.MatchOutcome("error")
		return nil, p.fail(report, "match questions", err)
	}
	p.metrics.MatchOutcome("fallback")
	emit(report, types.StageDone, res.Template.ID)
	return &MatchResult{
		Template:        res.Template,
		Questions:       questions,
		FromFallback:    true,
		FallbackCreated: res.Created,
	}, nil
}

// deriveQuestions builds one question per template variable, prefilled from
// the query where the generator extracts a valid value. A prefill failure
// only loses the prefills, not the questions.
func (p *Pipeline) deriveQuestions(ctx context.Context, query string, tpl *types.Template) ([]types.Question, error) {
	questions := make([]types.Question, 0, len(tpl.Variables))
	for i := range tpl.Variables {
		questions = append(questions, types.Question{
			VariableKey: tpl.Variables[i].Key,
			Prompt:      types.DefaultPrompt(&tpl.Variables[i]),
		})
	}
	if len(questions) == 0 {
		return questions, nil
	}

	gctx, cancel := context.WithTimeout(ctx, p.config.GenerateTimeout)
	values, err := p.generator.Prefill(gctx, query, tpl.Variables)
	cancel()
	if err != nil {
		p.logger.Warn("prefill unavailable", zap.Error(err))
		return questions, nil
	}
	for i := range questions {
		if val, ok := values[questions[i].VariableKey]; ok {
			questions[i].Prefill = &val
			questions[i].Answered = true
		}
	}
	return questions, nil
}

func (p *Pipeline) fail(report types.Reporter, op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if report != nil {
		report(types.ProgressEvent{
			Stage: types.StageFailed,
			Code:  types.ErrorCode(err),
			At:    time.Now(),
		})
	}
	p.logger.Error(op, zap.String("code", types.ErrorCode(err)), zap.Error(err))
	return wrapped
}

func fallbackOutcome(err error) string {
	if reason := fallback.FailureReasonOf(err); reason != "" {
		return string(reason)
	}
	return "error"
}

func emit(report types.Reporter, stage types.Stage, detail string) {
	if report == nil {
		return
	}
	report(types.ProgressEvent{Stage: stage, Detail: detail, At: time.Now()})
}
