// Package gate decides whether a match candidate is good enough to reuse.
//
// The gate applies two thresholds in sequence: a cosine similarity floor
// that screens the raw candidate list, then a re-ranker confidence floor
// on the model's pick among the survivors. A candidate passes only when
// it clears both. Re-ranker outages degrade the gate to similarity-only
// acceptance instead of failing the request.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/pkg/types"
)

// Default thresholds. All are overridable through Config.
const (
	// DefaultMatchFloor is the minimum cosine similarity for a candidate
	// to be considered at all.
	DefaultMatchFloor = 0.75
	// DefaultRerankFloor is the minimum re-ranker confidence to accept
	// the picked candidate.
	DefaultRerankFloor = 0.60
	// DefaultDuplicateFloor is the similarity at which an incoming
	// template is treated as a variant of an existing one.
	DefaultDuplicateFloor = 0.90
)

// Rejection reasons carried on MatchDecision.Reason.
const (
	ReasonEmpty         = "empty"
	ReasonBelowFloor    = "below_floor"
	ReasonLowConfidence = "low_confidence"
)

// Reranker picks the best candidate for a query, or -1 when none fits.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.MatchCandidate) (*generator.RerankResult, error)
}

// Config tunes the gate's thresholds. Zero values fall back to defaults.
type Config struct {
	MatchFloor     float64
	RerankFloor    float64
	DuplicateFloor float64
}

func (c Config) withDefaults() Config {
	if c.MatchFloor <= 0 {
		c.MatchFloor = DefaultMatchFloor
	}
	if c.RerankFloor <= 0 {
		c.RerankFloor = DefaultRerankFloor
	}
	if c.DuplicateFloor <= 0 {
		c.DuplicateFloor = DefaultDuplicateFloor
	}
	return c
}

// Gate evaluates match candidates against the acceptance thresholds.
type Gate struct {
	reranker Reranker
	config   Config
	logger   *zap.Logger
}

// New creates a Gate. The reranker may be nil, in which case every
// evaluation runs similarity-only.
func New(reranker Reranker, config Config, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{reranker: reranker, config: config.withDefaults(), logger: logger}
}

// Evaluate screens candidates by similarity, re-ranks the survivors, and
// returns the verdict. The decision's Quality is max(confidence, similarity)
// for the accepted candidate.
func (g *Gate) Evaluate(ctx context.Context, query string, candidates []types.MatchCandidate) (*types.MatchDecision, error) {
	if len(candidates) == 0 {
		return &types.MatchDecision{Reason: ReasonEmpty}, nil
	}

	survivors := make([]types.MatchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= g.config.MatchFloor {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return &types.MatchDecision{
			Similarity: candidates[0].Similarity,
			Reason:     ReasonBelowFloor,
		}, nil
	}

	if g.reranker == nil {
		return g.acceptSimilarityOnly(survivors[0]), nil
	}

	verdict, err := g.reranker.Rerank(ctx, query, survivors)
	if err != nil {
		// A re-ranker outage must not block matching. Fall back to the
		// highest-similarity survivor.
		g.logger.Warn("re-ranker unavailable, accepting by similarity",
			zap.Error(err))
		return g.acceptSimilarityOnly(survivors[0]), nil
	}

	if verdict.BestIndex < 0 {
		return &types.MatchDecision{
			Similarity: survivors[0].Similarity,
			Confidence: verdict.Confidence,
			Reason:     ReasonLowConfidence,
		}, nil
	}
	if verdict.BestIndex >= len(survivors) {
		return nil, fmt.Errorf("%w: re-ranker index %d out of range",
			types.ErrGenerationFailed, verdict.BestIndex)
	}

	best := survivors[verdict.BestIndex]
	if verdict.Confidence < g.config.RerankFloor {
		return &types.MatchDecision{
			Template:   best.Template,
			Similarity: best.Similarity,
			Confidence: verdict.Confidence,
			Reason:     ReasonLowConfidence,
		}, nil
	}

	return &types.MatchDecision{
		Accepted:   true,
		Template:   best.Template,
		Similarity: best.Similarity,
		Confidence: verdict.Confidence,
		Quality:    max(verdict.Confidence, best.Similarity),
	}, nil
}

// CheckDuplicate reports whether any candidate is close enough to count as
// a variant of the incoming document. Duplicate detection is similarity-only
// and never consults the re-ranker.
func (g *Gate) CheckDuplicate(candidates []types.MatchCandidate) *types.MatchCandidate {
	for i := range candidates {
		if candidates[i].Similarity >= g.config.DuplicateFloor {
			return &candidates[i]
		}
	}
	return nil
}

func (g *Gate) acceptSimilarityOnly(best types.MatchCandidate) *types.MatchDecision {
	return &types.MatchDecision{
		Accepted:   true,
		Template:   best.Template,
		Similarity: best.Similarity,
		Quality:    best.Similarity,
	}
}
