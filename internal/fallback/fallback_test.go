package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/websearch"
	"github.com/draftforge/draftforge/pkg/types"
)

type fakeSearcher struct {
	hits []websearch.Result
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	return f.hits, f.err
}

type fakeFetcher struct {
	pages map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("fetch failed")
	}
	return page, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(pageURL string, pageHTML []byte) (*websearch.Document, error) {
	text := string(pageHTML)
	if len(text) < websearch.MinUsableLength {
		return nil, websearch.ErrUnusableContent
	}
	return &websearch.Document{Title: "page", URL: pageURL, Markdown: text}, nil
}

type fakeGenerator struct {
	generateFunc func(ctx context.Context, src generator.Source) (*generator.GenerationResult, error)
	lastSource   generator.Source
}

func (f *fakeGenerator) Generate(ctx context.Context, src generator.Source) (*generator.GenerationResult, error) {
	f.lastSource = src
	return f.generateFunc(ctx, src)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func goodResult() *generator.GenerationResult {
	return &generator.GenerationResult{
		Name:    "Mutual NDA",
		DocType: "nda",
		Body:    "Agreement between {{party_a}} and {{party_b}}.",
		Variables: []types.Variable{
			{Key: "party_a", Label: "First party", Required: true, DType: types.TypeString},
			{Key: "party_b", Label: "Second party", Required: true, DType: types.TypeString},
		},
	}
}

const usableText = "This mutual non-disclosure agreement is entered into between the parties to protect confidential information disclosed during their discussions."

func newOrchestrator(searcher websearch.Searcher, fetcher pageFetcher, gen templateGenerator, s templateWriter) *Orchestrator {
	return New(searcher, fetcher, fakeExtractor{}, gen, fakeEmbedder{}, s, Config{}, nil)
}

func TestRunSuccess(t *testing.T) {
	searcher := &fakeSearcher{hits: []websearch.Result{
		{Title: "NDA template", URL: "https://example.com/nda", Text: usableText},
	}}
	gen := &fakeGenerator{generateFunc: func(_ context.Context, _ generator.Source) (*generator.GenerationResult, error) {
		return goodResult(), nil
	}}
	s := store.NewMemoryStore()

	var stages []types.Stage
	o := newOrchestrator(searcher, &fakeFetcher{}, gen, s)
	res, err := o.Run(context.Background(), "nda for a vendor", func(ev types.ProgressEvent) {
		stages = append(stages, ev.Stage)
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "https://example.com/nda", res.SourceURL)
	assert.Equal(t, types.SourceWeb, res.Template.Source)
	assert.Equal(t, "https://example.com/nda", res.Template.SourceURL)
	assert.NotEmpty(t, res.Template.Embedding)

	assert.Equal(t, []types.Stage{types.StageExtracting, types.StageGenerating}, stages)
	assert.Equal(t, types.SourceWeb, gen.lastSource.Origin)
	assert.Equal(t, "nda for a vendor", gen.lastSource.Hint)

	// Template landed in the store
	stored, err := s.GetTemplate(context.Background(), res.Template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mutual NDA", stored.Name)
}

func TestRunNoResults(t *testing.T) {
	o := newOrchestrator(&fakeSearcher{}, &fakeFetcher{}, &fakeGenerator{}, store.NewMemoryStore())
	_, err := o.Run(context.Background(), "q", nil)

	assert.ErrorIs(t, err, types.ErrFallbackExhausted)
	assert.Equal(t, types.ReasonNoResults, FailureReasonOf(err))
}

func TestRunSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: websearch.ErrSearchFailed}
	o := newOrchestrator(searcher, &fakeFetcher{}, &fakeGenerator{}, store.NewMemoryStore())

	_, err := o.Run(context.Background(), "q", nil)
	assert.ErrorIs(t, err, types.ErrCapabilityUnavailable)
	assert.NotErrorIs(t, err, types.ErrFallbackExhausted)
}

func TestRunNoUsableContent(t *testing.T) {
	searcher := &fakeSearcher{hits: []websearch.Result{
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b"},
	}}
	fetcher := &fakeFetcher{pages: map[string][]byte{
		"https://example.com/a": []byte("tiny"),
	}}
	o := newOrchestrator(searcher, fetcher, &fakeGenerator{}, store.NewMemoryStore())

	_, err := o.Run(context.Background(), "q", nil)
	assert.ErrorIs(t, err, types.ErrFallbackExhausted)
	assert.Equal(t, types.ReasonNoUsableContent, FailureReasonOf(err))
}

func TestRunPicksFirstUsableInRankOrder(t *testing.T) {
	searcher := &fakeSearcher{hits: []websearch.Result{
		{URL: "https://example.com/broken"},
		{URL: "https://example.com/first", Text: usableText + " first"},
		{URL: "https://example.com/second", Text: usableText + " second"},
	}}
	gen := &fakeGenerator{generateFunc: func(_ context.Context, _ generator.Source) (*generator.GenerationResult, error) {
		return goodResult(), nil
	}}
	o := newOrchestrator(searcher, &fakeFetcher{}, gen, store.NewMemoryStore())

	res, err := o.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first", res.SourceURL)
	assert.True(t, strings.HasSuffix(gen.lastSource.Text, "first"))
}

func TestRunGenerationFailed(t *testing.T) {
	searcher := &fakeSearcher{hits: []websearch.Result{
		{URL: "https://example.com/nda", Text: usableText},
	}}
	gen := &fakeGenerator{generateFunc: func(_ context.Context, _ generator.Source) (*generator.GenerationResult, error) {
		return nil, types.ErrGenerationFailed
	}}
	o := newOrchestrator(searcher, &fakeFetcher{}, gen, store.NewMemoryStore())

	_, err := o.Run(context.Background(), "q", nil)
	assert.ErrorIs(t, err, types.ErrFallbackExhausted)
	assert.ErrorIs(t, err, types.ErrGenerationFailed)
	assert.Equal(t, types.ReasonGenerationFailed, FailureReasonOf(err))
}

func TestRunDuplicateCollapses(t *testing.T) {
	s := store.NewMemoryStore()
	existing := &types.Template{
		Name:      "Existing NDA",
		Body:      "Agreement between {{party_a}} and others.",
		Embedding: []float32{1, 0, 0},
		Source:    types.SourceUpload,
		Variables: []types.Variable{
			{Key: "party_a", Label: "First party", DType: types.TypeString},
		},
	}
	require.NoError(t, s.CreateTemplate(context.Background(), existing))

	searcher := &fakeSearcher{hits: []websearch.Result{
		{URL: "https://example.com/nda", Text: usableText},
	}}
	gen := &fakeGenerator{generateFunc: func(_ context.Context, _ generator.Source) (*generator.GenerationResult, error) {
		return goodResult(), nil
	}}
	o := newOrchestrator(searcher, &fakeFetcher{}, gen, s)

	// fakeEmbedder returns the same vector as the existing template, so
	// the duplicate gate collapses the new one onto it.
	res, err := o.Run(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, existing.ID, res.Template.ID)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(&fakeSearcher{}, &fakeFetcher{}, &fakeGenerator{}, store.NewMemoryStore())
	_, err := o.Run(ctx, "q", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
