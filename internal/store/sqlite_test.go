package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	// Use in-memory database for testing
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTemplate(name string, embedding []float32) *types.Template {
	return &types.Template{
		Name:           name,
		DocType:        "nda",
		Jurisdiction:   "California",
		Description:    "Mutual non-disclosure agreement",
		Body:           "Between {{party_a}} and {{party_b}}.",
		SimilarityTags: []string{"nda", "confidentiality"},
		Embedding:      embedding,
		Source:         types.SourceUpload,
		Variables: []types.Variable{
			{Key: "party_a", Label: "First party", DType: types.TypeString, Required: true},
			{Key: "party_b", Label: "Second party", DType: types.TypeString, Required: true,
				Example: "Acme Corp"},
		},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	s := setupTestDB(t)
	assert.NotNil(t, s.db)
}

func TestCreateAndGetTemplate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tpl := sampleTemplate("Mutual NDA", []float32{0.1, 0.2, 0.3})
	err := s.CreateTemplate(ctx, tpl)
	require.NoError(t, err)
	assert.NotEmpty(t, tpl.ID)
	assert.False(t, tpl.CreatedAt.IsZero())

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, got.Name)
	assert.Equal(t, tpl.Body, got.Body)
	assert.Equal(t, types.SourceUpload, got.Source)
	assert.Equal(t, []string{"nda", "confidentiality"}, got.SimilarityTags)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	require.Len(t, got.Variables, 2)
	assert.Equal(t, "party_a", got.Variables[0].Key)
	assert.Equal(t, "party_b", got.Variables[1].Key)
	assert.True(t, got.Variables[0].Required)
	assert.Equal(t, "Acme Corp", got.Variables[1].Example)
}

func TestGetTemplate_NotFound(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.GetTemplate(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateTemplateEnumRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tpl := sampleTemplate("Lease", []float32{0.5, 0.5})
	tpl.Body = "Property in {{state}}."
	tpl.Variables = []types.Variable{
		{Key: "state", Label: "State", DType: types.TypeEnum,
			EnumValues: []string{"California", "New York"}},
	}
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Variables, 1)
	assert.Equal(t, types.TypeEnum, got.Variables[0].DType)
	assert.Equal(t, []string{"California", "New York"}, got.Variables[0].EnumValues)
}

func TestDeleteTemplateCascades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tpl := sampleTemplate("Mutual NDA", []float32{1, 0})
	require.NoError(t, s.CreateTemplate(ctx, tpl))
	require.NoError(t, s.CreateInstance(ctx, &types.Instance{
		TemplateID: tpl.ID,
		UserQuery:  "nda for a vendor",
		Answers:    map[string]string{"party_a": "Acme"},
		DraftMD:    "Between Acme and ...",
	}))

	require.NoError(t, s.DeleteTemplate(ctx, tpl.ID))

	_, err := s.GetTemplate(ctx, tpl.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.TemplatesCount)
	assert.Equal(t, 0, status.VariablesCount)
	assert.Equal(t, 0, status.InstancesCount)
}

func TestDeleteTemplate_NotFound(t *testing.T) {
	s := setupTestDB(t)
	err := s.DeleteTemplate(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestNearestNeighborsEmptyStore(t *testing.T) {
	s := setupTestDB(t)

	results, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNearestNeighborsOrdering(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	near := sampleTemplate("near", []float32{1, 0.1, 0})
	far := sampleTemplate("far", []float32{0, 1, 0})
	mid := sampleTemplate("mid", []float32{1, 1, 0})
	for _, tpl := range []*types.Template{far, mid, near} {
		require.NoError(t, s.CreateTemplate(ctx, tpl))
	}

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, near.ID, results[0].TemplateID)
	assert.Equal(t, mid.ID, results[1].TemplateID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestNearestNeighborsTieBreaksByNewest(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	older := sampleTemplate("older", []float32{1, 0})
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleTemplate("newer", []float32{1, 0})
	newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateTemplate(ctx, older))
	require.NoError(t, s.CreateTemplate(ctx, newer))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newer.ID, results[0].TemplateID)
	assert.Equal(t, older.ID, results[1].TemplateID)
}

func TestNearestNeighborsSkipsDimensionMismatch(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	threeDim := sampleTemplate("3d", []float32{1, 0, 0})
	twoDim := sampleTemplate("2d", []float32{1, 0})
	require.NoError(t, s.CreateTemplate(ctx, threeDim))
	require.NoError(t, s.CreateTemplate(ctx, twoDim))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, threeDim.ID, results[0].TemplateID)
}

func TestCreateTemplateIfUnique(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	first := sampleTemplate("first", []float32{1, 0, 0})
	winner, created, err := s.CreateTemplateIfUnique(ctx, first, 0.90)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, winner.ID)

	// Near-identical embedding is rejected; the stored template wins.
	dup := sampleTemplate("duplicate", []float32{0.99, 0.01, 0})
	winner, created, err = s.CreateTemplateIfUnique(ctx, dup, 0.90)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, winner.ID)

	// A genuinely different embedding is stored.
	other := sampleTemplate("other", []float32{0, 1, 0})
	winner, created, err = s.CreateTemplateIfUnique(ctx, other, 0.90)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, other.ID, winner.ID)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TemplatesCount)
}

func TestCreateTemplateIfUniqueRequiresEmbedding(t *testing.T) {
	s := setupTestDB(t)
	tpl := sampleTemplate("no embedding", nil)
	_, _, err := s.CreateTemplateIfUnique(context.Background(), tpl, 0.90)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestInstanceRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tpl := sampleTemplate("Mutual NDA", []float32{1, 0})
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	inst := &types.Instance{
		TemplateID: tpl.ID,
		UserQuery:  "nda with a contractor",
		Answers:    map[string]string{"party_a": "Acme", "party_b": "Bolt LLC"},
		DraftMD:    "Between Acme and Bolt LLC.",
	}
	require.NoError(t, s.CreateInstance(ctx, inst))
	assert.NotEmpty(t, inst.ID)

	got, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.UserQuery, got.UserQuery)
	assert.Equal(t, inst.Answers, got.Answers)
	assert.Equal(t, inst.DraftMD, got.DraftMD)

	list, err := s.ListInstancesByTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, inst.ID, list[0].ID)
}

func TestListTemplates(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	a := sampleTemplate("a", []float32{1, 0})
	a.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := sampleTemplate("b", []float32{0, 1})
	b.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateTemplate(ctx, a))
	require.NoError(t, s.CreateTemplate(ctx, b))

	list, err := s.ListTemplates(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Name)
	assert.Equal(t, "a", list[1].Name)
}
