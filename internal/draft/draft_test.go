package draft

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/pkg/types"
)

func ndaTemplate() *types.Template {
	return &types.Template{
		ID:           "tpl-1",
		Name:         "Mutual NDA",
		DocType:      "nda",
		Jurisdiction: "California",
		Body:         "Agreement between {{party_a}} and {{party_b}}, effective {{effective_date}}.",
		Variables: []types.Variable{
			{Key: "party_a", Label: "First party", Required: true, DType: types.TypeString},
			{Key: "party_b", Label: "Second party", Required: true, DType: types.TypeString},
			{Key: "effective_date", Label: "Effective date", DType: types.TypeDate},
		},
	}
}

func TestBuildFrontmatter(t *testing.T) {
	out, err := BuildFrontmatter(ndaTemplate())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "name: Mutual NDA")
	assert.Contains(t, out, "doc_type: nda")
	assert.Contains(t, out, "key: party_a")
	assert.True(t, strings.HasSuffix(out, ndaTemplate().Body))
}

func TestStripFrontmatterRoundTrip(t *testing.T) {
	tpl := ndaTemplate()
	out, err := BuildFrontmatter(tpl)
	require.NoError(t, err)
	assert.Equal(t, tpl.Body, StripFrontmatter(out))
}

func TestStripFrontmatterNoHeader(t *testing.T) {
	body := "plain body with no header"
	assert.Equal(t, body, StripFrontmatter(body))
}

func TestRender(t *testing.T) {
	draft, missing, err := Render(ndaTemplate(), map[string]string{
		"party_a":        "Acme Corp",
		"party_b":        "Bolt LLC",
		"effective_date": "2026-09-01",
	})
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, "Agreement between Acme Corp and Bolt LLC, effective 2026-09-01.", draft)
}

func TestRenderMissingRequired(t *testing.T) {
	draft, missing, err := Render(ndaTemplate(), map[string]string{
		"party_a": "Acme Corp",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"party_b"}, missing)
	// Unanswered slots stay as placeholders
	assert.Contains(t, draft, "{{party_b}}")
	assert.Contains(t, draft, "{{effective_date}}")
}

func TestRenderUnknownKey(t *testing.T) {
	_, _, err := Render(ndaTemplate(), map[string]string{"bogus": "x"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRenderInvalidValue(t *testing.T) {
	_, _, err := Render(ndaTemplate(), map[string]string{
		"effective_date": "next Tuesday",
	})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestMaterialize(t *testing.T) {
	s := store.NewMemoryStore()
	tpl := ndaTemplate()
	answers := map[string]string{
		"party_a": "Acme Corp",
		"party_b": "Bolt LLC",
	}

	inst, err := Materialize(context.Background(), s, tpl, "nda with bolt", answers)
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID)
	assert.Equal(t, "tpl-1", inst.TemplateID)
	assert.Contains(t, inst.DraftMD, "Acme Corp")
	assert.False(t, inst.CreatedAt.IsZero())

	stored, err := s.GetInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.DraftMD, stored.DraftMD)
}

func TestMaterializeMissingRequired(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := Materialize(context.Background(), s, ndaTemplate(), "q", map[string]string{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Contains(t, err.Error(), "party_a")
}
