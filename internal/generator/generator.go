package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/pkg/types"
)

// Common errors
var (
	ErrEmptySource       = fmt.Errorf("%w: source text cannot be empty", types.ErrInvalidInput)
	ErrModelFailed       = fmt.Errorf("%w: model call failed", types.ErrCapabilityUnavailable)
	ErrBadModelOutput    = fmt.Errorf("%w: model returned unusable output", types.ErrGenerationFailed)
	ErrNoProviderEnabled = fmt.Errorf("%w: no generator provider configured", types.ErrCapabilityUnavailable)
)

// Source is the input to template generation: raw document text or, for
// web fallback, extracted page content.
type Source struct {
	Text   string
	Hint   string // Optional caller-supplied name or topic
	Origin types.Provenance
	URL    string // Set when Origin is SourceWeb
}

// Classification is the model's judgment of what kind of document the
// source is. When the source is not itself a legal document, Archetype
// names the closest standard legal template.
type Classification struct {
	IsLegalDocument bool
	Archetype       string
	Jurisdiction    string
}

// GenerationResult is the outcome of one combined extraction call.
type GenerationResult struct {
	Name           string
	DocType        string
	Jurisdiction   string
	Description    string
	Body           string
	Variables      []types.Variable
	Questions      []types.Question
	SimilarityTags []string
	Classification Classification
}

// RerankResult is the re-ranker's verdict on a candidate list.
type RerankResult struct {
	BestIndex  int // Index into the candidate slice; -1 when none fits
	Confidence float64
}

// Generator is the model-backed capability for template extraction,
// candidate re-ranking, and answer prefill.
type Generator interface {
	// Generate turns source text into a template in one combined call:
	// body with {{key}} placeholders, variable schema, questions, tags,
	// and document classification. Sources that are not legal documents
	// are reclassified onto the nearest legal archetype and the archetype
	// body is synthesized before extraction.
	Generate(ctx context.Context, src Source) (*GenerationResult, error)

	// Rerank picks the candidate that best serves the query, with a
	// confidence in [0,1].
	Rerank(ctx context.Context, query string, candidates []types.MatchCandidate) (*RerankResult, error)

	// Prefill extracts answer candidates for the variables from the user
	// query. Only values passing the variable's validation are returned.
	Prefill(ctx context.Context, query string, vars []types.Variable) (map[string]types.PrefillValue, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the generator
	Close() error
}

// normalizeResult repairs placeholder/variable disagreement in a raw model
// result so the template always validates: variables the body never
// references are dropped, and placeholders with no declared variable are
// demoted to literal text. Questions are completed with fallback prompts.
func normalizeResult(res *GenerationResult) error {
	if strings.TrimSpace(res.Body) == "" {
		return fmt.Errorf("%w: empty template body", ErrBadModelOutput)
	}

	declared := make(map[string]*types.Variable, len(res.Variables))
	kept := res.Variables[:0]
	for i := range res.Variables {
		v := res.Variables[i]
		v.Key = strings.ToLower(strings.TrimSpace(v.Key))
		if v.DType == "" {
			v.DType = types.TypeString
		}
		if v.Label == "" {
			v.Label = strings.ReplaceAll(v.Key, "_", " ")
		}
		if err := v.Validate(); err != nil {
			continue // Drop malformed variable declarations
		}
		if _, dup := declared[v.Key]; dup {
			continue
		}
		kept = append(kept, v)
		declared[v.Key] = &kept[len(kept)-1]
	}
	res.Variables = kept

	// Demote undeclared placeholders to literal text
	referenced := types.Placeholders(res.Body)
	refSet := make(map[string]bool, len(referenced))
	for _, key := range referenced {
		if declared[key] == nil {
			res.Body = strings.ReplaceAll(res.Body, "{{"+key+"}}", key)
			continue
		}
		refSet[key] = true
	}

	// Drop variables the body never references
	final := res.Variables[:0]
	for i := range res.Variables {
		if refSet[res.Variables[i].Key] {
			final = append(final, res.Variables[i])
		}
	}
	res.Variables = final

	// Keep only questions for surviving variables; fill missing prompts
	byKey := make(map[string]types.Question, len(res.Questions))
	for _, q := range res.Questions {
		byKey[q.VariableKey] = q
	}
	questions := make([]types.Question, 0, len(res.Variables))
	for i := range res.Variables {
		v := &res.Variables[i]
		q, ok := byKey[v.Key]
		if !ok || strings.TrimSpace(q.Prompt) == "" {
			q = types.Question{VariableKey: v.Key, Prompt: types.DefaultPrompt(v)}
		}
		questions = append(questions, q)
	}
	res.Questions = questions

	if res.Name == "" {
		res.Name = "Untitled template"
	}
	return nil
}

// Template assembles a types.Template from a generation result.
func (r *GenerationResult) Template(src Source) *types.Template {
	return &types.Template{
		Name:           r.Name,
		DocType:        r.DocType,
		Jurisdiction:   r.Jurisdiction,
		Description:    r.Description,
		Body:           r.Body,
		SimilarityTags: r.SimilarityTags,
		Source:         src.Origin,
		SourceURL:      src.URL,
		Variables:      r.Variables,
	}
}
