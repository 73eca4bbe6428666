// Package matcher retrieves stored templates by embedding similarity.
//
// The matcher is a pure read over the template store: it never writes,
// reranks, or applies acceptance thresholds. Callers that need a
// quality decision layer a gate on top of the raw candidate list.
package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/pkg/types"
)

// DefaultTopK bounds the candidate list when the caller passes k <= 0.
const DefaultTopK = 5

// Matcher finds the stored templates closest to a query embedding.
type Matcher struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a Matcher backed by the given store.
func New(s store.Store, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{store: s, logger: logger}
}

// Match returns up to k candidates ordered by cosine similarity descending.
// An empty store yields an empty slice. Candidates carry their full
// template so downstream stages never re-fetch.
func (m *Matcher) Match(ctx context.Context, embedding []float32, k int) ([]types.MatchCandidate, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", types.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	hits, err := m.store.NearestNeighbors(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor search: %w", err)
	}

	candidates := make([]types.MatchCandidate, 0, len(hits))
	for _, hit := range hits {
		tpl, err := m.store.GetTemplate(ctx, hit.TemplateID)
		if err != nil {
			// A template deleted between the search and the fetch is
			// skipped rather than failing the whole match.
			m.logger.Warn("candidate template vanished during match",
				zap.String("template_id", hit.TemplateID),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, types.MatchCandidate{
			Template:   tpl,
			Similarity: hit.Similarity,
		})
	}

	m.logger.Debug("match complete",
		zap.Int("requested", k),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}
