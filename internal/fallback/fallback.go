package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/websearch"
	"github.com/draftforge/draftforge/pkg/types"
)

// DefaultMaxCandidates bounds how many search hits are fetched per run.
const DefaultMaxCandidates = 5

// ExhaustedError reports which terminal edge a fallback run ended on.
// It matches types.ErrFallbackExhausted under errors.Is, as does its
// cause when one exists.
type ExhaustedError struct {
	Reason types.FailureReason
	cause  error
}

func (e *ExhaustedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("fallback exhausted (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("fallback exhausted (%s)", e.Reason)
}

func (e *ExhaustedError) Unwrap() []error {
	if e.cause != nil {
		return []error{types.ErrFallbackExhausted, e.cause}
	}
	return []error{types.ErrFallbackExhausted}
}

// FailureReasonOf extracts the terminal reason from a fallback error, or
// an empty reason for other errors.
func FailureReasonOf(err error) types.FailureReason {
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		return ex.Reason
	}
	return ""
}

// Consumer-side views of the capabilities the orchestrator drives.
type (
	pageFetcher interface {
		Fetch(ctx context.Context, url string) ([]byte, error)
	}
	pageExtractor interface {
		Extract(pageURL string, pageHTML []byte) (*websearch.Document, error)
	}
	templateGenerator interface {
		Generate(ctx context.Context, src generator.Source) (*generator.GenerationResult, error)
	}
	textEmbedder interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}
	templateWriter interface {
		CreateTemplateIfUnique(ctx context.Context, tpl *types.Template, floor float64) (*types.Template, bool, error)
	}
)

// Config tunes a fallback run.
type Config struct {
	MaxCandidates  int
	DuplicateFloor float64
}

func (c Config) withDefaults() Config {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.DuplicateFloor <= 0 {
		c.DuplicateFloor = 0.90
	}
	return c
}

// Orchestrator produces a template from the web when no stored one matches.
type Orchestrator struct {
	searcher  websearch.Searcher
	fetcher   pageFetcher
	extractor pageExtractor
	generator templateGenerator
	embedder  textEmbedder
	store     templateWriter
	config    Config
	logger    *zap.Logger
}

// New wires a fallback orchestrator.
func New(
	searcher websearch.Searcher,
	fetcher pageFetcher,
	extractor pageExtractor,
	gen templateGenerator,
	emb textEmbedder,
	store templateWriter,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		generator: gen,
		embedder:  emb,
		store:     store,
		config:    config.withDefaults(),
		logger:    logger,
	}
}

// Result is the outcome of a successful fallback run.
type Result struct {
	Template *types.Template
	// Created is false when the generated template collapsed onto an
	// existing near-duplicate and that one was returned instead.
	Created bool
	// SourceURL is the page the template was generated from.
	SourceURL string
}

type state int

const (
	stateSearch state = iota
	stateExtract
	stateGenerate
	statePersist
	stateDone
)

func (s state) String() string {
	switch s {
	case stateSearch:
		return "search"
	case stateExtract:
		return "extract"
	case stateGenerate:
		return "generate"
	case statePersist:
		return "persist"
	default:
		return "done"
	}
}

// Run drives the fallback state machine for one query. States advance
// monotonically; context cancellation aborts between states.
func (o *Orchestrator) Run(ctx context.Context, query string, report types.Reporter) (*Result, error) {
	run := &fallbackRun{o: o, query: query, report: report}

	for st := stateSearch; st != stateDone; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.logger.Debug("fallback state", zap.Stringer("state", st), zap.String("query", query))

		var err error
		st, err = run.step(ctx, st)
		if err != nil {
			return nil, err
		}
	}
	return run.result, nil
}

type fallbackRun struct {
	o      *Orchestrator
	query  string
	report types.Reporter

	hits   []websearch.Result
	doc    *websearch.Document
	gen    *generator.GenerationResult
	result *Result
}

func (r *fallbackRun) step(ctx context.Context, st state) (state, error) {
	switch st {
	case stateSearch:
		return r.search(ctx)
	case stateExtract:
		return r.extract(ctx)
	case stateGenerate:
		return r.generate(ctx)
	case statePersist:
		return r.persist(ctx)
	default:
		return stateDone, nil
	}
}

func (r *fallbackRun) search(ctx context.Context) (state, error) {
	hits, err := r.o.searcher.Search(ctx, r.query, r.o.config.MaxCandidates)
	if err != nil {
		return 0, fmt.Errorf("fallback search: %w", err)
	}
	if len(hits) == 0 {
		return 0, &ExhaustedError{Reason: types.ReasonNoResults}
	}
	r.hits = hits
	return stateExtract, nil
}

// extract fetches candidates concurrently and keeps the first usable
// document in search rank order.
func (r *fallbackRun) extract(ctx context.Context) (state, error) {
	r.emit(types.StageExtracting, fmt.Sprintf("%d web candidates", len(r.hits)))

	docs := make([]*websearch.Document, len(r.hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i, hit := range r.hits {
		g.Go(func() error {
			doc, err := r.extractOne(gctx, hit)
			if err != nil {
				r.o.logger.Debug("candidate unusable",
					zap.String("url", hit.URL), zap.Error(err))
				return nil // A bad candidate never fails the group.
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, doc := range docs {
		if doc != nil {
			r.doc = doc
			return stateGenerate, nil
		}
	}
	return 0, &ExhaustedError{Reason: types.ReasonNoUsableContent}
}

func (r *fallbackRun) extractOne(ctx context.Context, hit websearch.Result) (*websearch.Document, error) {
	// The search provider's content snapshot saves a fetch when present.
	if len(hit.Text) >= websearch.MinUsableLength {
		return &websearch.Document{Title: hit.Title, URL: hit.URL, Markdown: hit.Text}, nil
	}
	body, err := r.o.fetcher.Fetch(ctx, hit.URL)
	if err != nil {
		return nil, err
	}
	return r.o.extractor.Extract(hit.URL, body)
}

func (r *fallbackRun) generate(ctx context.Context) (state, error) {
	r.emit(types.StageGenerating, r.doc.URL)

	gen, err := r.o.generator.Generate(ctx, generator.Source{
		Text:   r.doc.Markdown,
		Hint:   r.query,
		Origin: types.SourceWeb,
		URL:    r.doc.URL,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &ExhaustedError{Reason: types.ReasonGenerationFailed, cause: err}
	}
	r.gen = gen
	return statePersist, nil
}

func (r *fallbackRun) persist(ctx context.Context) (state, error) {
	tpl := r.gen.Template(generator.Source{Origin: types.SourceWeb, URL: r.doc.URL})

	embedding, err := r.o.embedder.Embed(ctx, tpl.Body)
	if err != nil {
		return 0, fmt.Errorf("embed generated template: %w", err)
	}
	tpl.Embedding = embedding

	winner, created, err := r.o.store.CreateTemplateIfUnique(ctx, tpl, r.o.config.DuplicateFloor)
	if err != nil {
		return 0, fmt.Errorf("persist generated template: %w", err)
	}
	if !created {
		r.o.logger.Info("web template collapsed onto existing near-duplicate",
			zap.String("template_id", winner.ID),
			zap.String("source_url", r.doc.URL))
	}

	r.result = &Result{Template: winner, Created: created, SourceURL: r.doc.URL}
	return stateDone, nil
}

func (r *fallbackRun) emit(stage types.Stage, detail string) {
	if r.report == nil {
		return
	}
	r.report(types.ProgressEvent{Stage: stage, Detail: detail, At: time.Now()})
}
