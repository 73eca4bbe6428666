package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/draftforge/pkg/types"
)

// MemoryStore is an in-memory Store implementation used by tests and
// ephemeral runs. It applies the same ordering and duplicate-check rules
// as the SQLite store.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*types.Template
	instances map[string]*types.Instance
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]*types.Template),
		instances: make(map[string]*types.Instance),
	}
}

func (m *MemoryStore) CreateTemplate(_ context.Context, tpl *types.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(tpl)
	return nil
}

func (m *MemoryStore) CreateTemplateIfUnique(_ context.Context, tpl *types.Template, floor float64) (*types.Template, bool, error) {
	if len(tpl.Embedding) == 0 {
		return nil, false, fmt.Errorf("%w: template embedding is required for duplicate check", types.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var winner *types.Template
	for _, existing := range m.templates {
		if cosineSimilarity(tpl.Embedding, existing.Embedding) < floor {
			continue
		}
		if winner == nil || existing.CreatedAt.Before(winner.CreatedAt) ||
			(existing.CreatedAt.Equal(winner.CreatedAt) && existing.ID < winner.ID) {
			winner = existing
		}
	}
	if winner != nil {
		return copyTemplate(winner), false, nil
	}
	m.insertLocked(tpl)
	return tpl, true, nil
}

func (m *MemoryStore) insertLocked(tpl *types.Template) {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	m.templates[tpl.ID] = copyTemplate(tpl)
}

func (m *MemoryStore) GetTemplate(_ context.Context, id string) (*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tpl, ok := m.templates[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return copyTemplate(tpl), nil
}

func (m *MemoryStore) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return types.ErrNotFound
	}
	delete(m.templates, id)
	for instID, inst := range m.instances {
		if inst.TemplateID == id {
			delete(m.instances, instID)
		}
	}
	return nil
}

func (m *MemoryStore) ListTemplates(_ context.Context, limit, offset int) ([]*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*types.Template, 0, len(m.templates))
	for _, tpl := range m.templates {
		all = append(all, tpl)
	}
	sortTemplatesNewestFirst(all)

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*types.Template, len(all))
	for i, tpl := range all {
		out[i] = copyTemplate(tpl)
	}
	return out, nil
}

func (m *MemoryStore) NearestNeighbors(_ context.Context, vector []float32, k int) ([]VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]candidate, 0, len(m.templates))
	for _, tpl := range m.templates {
		if len(tpl.Embedding) != len(vector) {
			continue
		}
		candidates = append(candidates, candidate{
			id:        tpl.ID,
			score:     cosineSimilarity(vector, tpl.Embedding),
			createdAt: tpl.CreatedAt,
		})
	}
	sortCandidates(candidates)

	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	results := make([]VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = VectorResult{
			TemplateID: candidates[i].id,
			Similarity: candidates[i].score,
			CreatedAt:  candidates[i].createdAt,
		}
	}
	return results, nil
}

func (m *MemoryStore) CreateInstance(_ context.Context, inst *types.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	cp := *inst
	m.instances[inst.ID] = &cp
	return nil
}

func (m *MemoryStore) GetInstance(_ context.Context, id string) (*types.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *MemoryStore) ListInstancesByTemplate(_ context.Context, templateID string) ([]*types.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Instance
	for _, inst := range m.instances {
		if inst.TemplateID == templateID {
			cp := *inst
			out = append(out, &cp)
		}
	}
	sortInstancesNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Status(_ context.Context) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	varCount := 0
	for _, tpl := range m.templates {
		varCount += len(tpl.Variables)
	}
	return &Status{
		TemplatesCount: len(m.templates),
		VariablesCount: varCount,
		InstancesCount: len(m.instances),
		Health:         HealthStatus{DatabaseAccessible: true},
	}, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func copyTemplate(tpl *types.Template) *types.Template {
	cp := *tpl
	cp.SimilarityTags = append([]string(nil), tpl.SimilarityTags...)
	cp.Embedding = append([]float32(nil), tpl.Embedding...)
	cp.Variables = append([]types.Variable(nil), tpl.Variables...)
	return &cp
}

func sortTemplatesNewestFirst(templates []*types.Template) {
	sort.Slice(templates, func(i, j int) bool {
		if !templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].CreatedAt.After(templates[j].CreatedAt)
		}
		return templates[i].ID > templates[j].ID
	})
}

func sortInstancesNewestFirst(instances []*types.Instance) {
	sort.Slice(instances, func(i, j int) bool {
		if !instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].CreatedAt.After(instances[j].CreatedAt)
		}
		return instances[i].ID > instances[j].ID
	})
}
