package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/pkg/types"
)

type fakeReranker struct {
	verdict *generator.RerankResult
	err     error
	seen    []types.MatchCandidate
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []types.MatchCandidate) (*generator.RerankResult, error) {
	f.seen = candidates
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func candidate(name string, similarity float64) types.MatchCandidate {
	return types.MatchCandidate{
		Template:   &types.Template{ID: name, Name: name},
		Similarity: similarity,
	}
}

func TestEvaluateAccepts(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: 1, Confidence: 0.9}}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "vendor nda", []types.MatchCandidate{
		candidate("lease", 0.82),
		candidate("nda", 0.78),
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Equal(t, "nda", decision.Template.ID)
	assert.InDelta(t, 0.78, decision.Similarity, 1e-9)
	assert.InDelta(t, 0.9, decision.Confidence, 1e-9)
	assert.InDelta(t, 0.9, decision.Quality, 1e-9) // max(confidence, similarity)
}

func TestEvaluateQualityUsesSimilarityWhenHigher(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: 0, Confidence: 0.65}}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("nda", 0.93),
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.InDelta(t, 0.93, decision.Quality, 1e-9)
}

func TestEvaluateEmpty(t *testing.T) {
	g := New(&fakeReranker{}, Config{}, nil)
	decision, err := g.Evaluate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, ReasonEmpty, decision.Reason)
}

func TestEvaluateBelowFloor(t *testing.T) {
	rr := &fakeReranker{}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("a", 0.6),
		candidate("b", 0.5),
	})
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, ReasonBelowFloor, decision.Reason)
	assert.Nil(t, rr.seen) // re-ranker never consulted
}

func TestEvaluateFiltersBeforeRerank(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: 0, Confidence: 0.8}}
	g := New(rr, Config{}, nil)

	_, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("keep", 0.8),
		candidate("drop", 0.4),
	})
	require.NoError(t, err)
	require.Len(t, rr.seen, 1)
	assert.Equal(t, "keep", rr.seen[0].Template.ID)
}

func TestEvaluateLowConfidence(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: 0, Confidence: 0.3}}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("nda", 0.8),
	})
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, ReasonLowConfidence, decision.Reason)
	assert.Equal(t, "nda", decision.Template.ID)
}

func TestEvaluateRerankerDeclinesAll(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: -1, Confidence: 0.2}}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("nda", 0.8),
	})
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, ReasonLowConfidence, decision.Reason)
}

func TestEvaluateRerankerOutageDegrades(t *testing.T) {
	rr := &fakeReranker{err: errors.New("model unavailable")}
	g := New(rr, Config{}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("best", 0.88),
		candidate("other", 0.8),
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Equal(t, "best", decision.Template.ID)
	assert.Zero(t, decision.Confidence)
	assert.InDelta(t, 0.88, decision.Quality, 1e-9)
}

func TestEvaluateNilReranker(t *testing.T) {
	g := New(nil, Config{}, nil)
	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("nda", 0.8),
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	rr := &fakeReranker{verdict: &generator.RerankResult{BestIndex: 0, Confidence: 0.5}}
	g := New(rr, Config{MatchFloor: 0.5, RerankFloor: 0.4}, nil)

	decision, err := g.Evaluate(context.Background(), "q", []types.MatchCandidate{
		candidate("nda", 0.55),
	})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)
}

func TestCheckDuplicate(t *testing.T) {
	g := New(nil, Config{}, nil)

	dup := g.CheckDuplicate([]types.MatchCandidate{
		candidate("close", 0.95),
		candidate("far", 0.7),
	})
	require.NotNil(t, dup)
	assert.Equal(t, "close", dup.Template.ID)

	assert.Nil(t, g.CheckDuplicate([]types.MatchCandidate{
		candidate("near_miss", 0.89),
	}))
	assert.Nil(t, g.CheckDuplicate(nil))
}
