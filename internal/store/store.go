package store

import (
	"context"
	"time"

	"github.com/draftforge/draftforge/pkg/types"
)

// Store defines the interface for persisting and querying templates,
// their variables, and rendered instances.
type Store interface {
	// Template operations. CreateTemplate writes the template and its
	// variables in a single transaction; a partial write is never visible.
	CreateTemplate(ctx context.Context, tpl *types.Template) error
	// CreateTemplateIfUnique re-checks the duplicate floor inside the write
	// transaction immediately before commit. When a stored template's
	// similarity to tpl's embedding meets the floor, the earliest-committed
	// such template is returned with created=false and tpl is not written.
	CreateTemplateIfUnique(ctx context.Context, tpl *types.Template, floor float64) (winner *types.Template, created bool, err error)
	GetTemplate(ctx context.Context, id string) (*types.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, limit, offset int) ([]*types.Template, error)

	// NearestNeighbors returns the k stored templates most similar to the
	// query vector, cosine similarity descending. Ties break by most-recent
	// created_at, then id. An empty store yields an empty slice, not an error.
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]VectorResult, error)

	// Instance operations
	CreateInstance(ctx context.Context, inst *types.Instance) error
	GetInstance(ctx context.Context, id string) (*types.Instance, error)
	ListInstancesByTemplate(ctx context.Context, templateID string) ([]*types.Instance, error)

	// Status operations
	Status(ctx context.Context) (*Status, error)

	Close() error
}

// VectorResult is one nearest-neighbor hit.
type VectorResult struct {
	TemplateID string
	Similarity float64
	CreatedAt  time.Time
}

// Status contains store statistics and health.
type Status struct {
	TemplatesCount int
	VariablesCount int
	InstancesCount int
	Health         HealthStatus
}

// HealthStatus reports whether the backing database is usable.
type HealthStatus struct {
	DatabaseAccessible bool
	VectorFastPath     bool
}
