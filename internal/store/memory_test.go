package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/types"
)

func TestMemoryStoreImplementsStore(t *testing.T) {
	var _ Store = NewMemoryStore()
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	tpl := sampleTemplate("Mutual NDA", []float32{1, 0, 0})
	require.NoError(t, m.CreateTemplate(ctx, tpl))

	got, err := m.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)
	require.Len(t, got.Variables, 2)

	// Mutating the returned copy must not affect the stored template.
	got.Name = "changed"
	again, err := m.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mutual NDA", again.Name)
}

func TestMemoryStoreNearestNeighborsEmpty(t *testing.T) {
	m := NewMemoryStore()
	results, err := m.NearestNeighbors(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStoreDuplicateGate(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	first := sampleTemplate("first", []float32{1, 0})
	_, created, err := m.CreateTemplateIfUnique(ctx, first, 0.90)
	require.NoError(t, err)
	assert.True(t, created)

	dup := sampleTemplate("dup", []float32{0.999, 0.001})
	winner, created, err := m.CreateTemplateIfUnique(ctx, dup, 0.90)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, winner.ID)
}

func TestMemoryStoreDuplicateGateRequiresEmbedding(t *testing.T) {
	m := NewMemoryStore()
	tpl := sampleTemplate("no embedding", nil)
	_, _, err := m.CreateTemplateIfUnique(context.Background(), tpl, 0.90)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	tpl := sampleTemplate("t", []float32{1, 0})
	require.NoError(t, m.CreateTemplate(ctx, tpl))
	require.NoError(t, m.CreateInstance(ctx, &types.Instance{TemplateID: tpl.ID}))

	require.NoError(t, m.DeleteTemplate(ctx, tpl.ID))
	list, err := m.ListInstancesByTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
