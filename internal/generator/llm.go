package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/internal/backoff"
	"github.com/draftforge/draftforge/pkg/types"
)

// LLMGenerator implements Generator over a chat completion API.
type LLMGenerator struct {
	client       chatClient
	providerName string
	modelName    string
}

// Generate runs the combined extraction call and normalizes the result.
func (g *LLMGenerator) Generate(ctx context.Context, src Source) (*GenerationResult, error) {
	if strings.TrimSpace(src.Text) == "" {
		return nil, ErrEmptySource
	}

	var user strings.Builder
	if src.Hint != "" {
		fmt.Fprintf(&user, "Topic hint: %s\n\n", src.Hint)
	}
	user.WriteString("Source material:\n\n")
	user.WriteString(src.Text)

	raw, err := g.call(ctx, generateSystemPrompt, user.String())
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := decodeModelJSON(raw, &wire); err != nil {
		return nil, err
	}

	res := wire.toResult()
	if !res.Classification.IsLegalDocument && res.Classification.Archetype == "" {
		return nil, fmt.Errorf("%w: source maps to no legal archetype", types.ErrClassificationAmbiguous)
	}
	if err := normalizeResult(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Rerank asks the model to pick the best candidate for the query.
func (g *LLMGenerator) Rerank(ctx context.Context, query string, candidates []types.MatchCandidate) (*RerankResult, error) {
	if len(candidates) == 0 {
		return &RerankResult{BestIndex: -1}, nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Request: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		tpl := c.Template
		fmt.Fprintf(&user, "%d. %s (doc_type: %s, jurisdiction: %s)\n   %s\n   tags: %s\n",
			i, tpl.Name, tpl.DocType, tpl.Jurisdiction, tpl.Description,
			strings.Join(tpl.SimilarityTags, ", "))
	}

	raw, err := g.call(ctx, rerankSystemPrompt, user.String())
	if err != nil {
		return nil, err
	}

	var wire struct {
		BestIndex  int     `json:"best_index"`
		Confidence float64 `json:"confidence"`
	}
	if err := decodeModelJSON(raw, &wire); err != nil {
		return nil, err
	}
	if wire.BestIndex >= len(candidates) {
		return nil, fmt.Errorf("%w: best_index %d out of range", ErrBadModelOutput, wire.BestIndex)
	}
	if wire.BestIndex < 0 {
		wire.BestIndex = -1
	}
	return &RerankResult{
		BestIndex:  wire.BestIndex,
		Confidence: clamp01(wire.Confidence),
	}, nil
}

// Prefill extracts validated answer candidates from the query.
func (g *LLMGenerator) Prefill(ctx context.Context, query string, vars []types.Variable) (map[string]types.PrefillValue, error) {
	if len(vars) == 0 {
		return map[string]types.PrefillValue{}, nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Request: %s\n\nVariables:\n", query)
	for _, v := range vars {
		fmt.Fprintf(&user, "- %s (%s): %s", v.Key, v.DType, v.Label)
		if len(v.EnumValues) > 0 {
			fmt.Fprintf(&user, " [one of: %s]", strings.Join(v.EnumValues, ", "))
		}
		user.WriteString("\n")
	}

	raw, err := g.call(ctx, prefillSystemPrompt, user.String())
	if err != nil {
		return nil, err
	}

	var wire struct {
		Values map[string]struct {
			Value      string  `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"values"`
	}
	if err := decodeModelJSON(raw, &wire); err != nil {
		return nil, err
	}

	byKey := make(map[string]*types.Variable, len(vars))
	for i := range vars {
		byKey[vars[i].Key] = &vars[i]
	}

	out := make(map[string]types.PrefillValue)
	for key, val := range wire.Values {
		v, ok := byKey[key]
		if !ok || strings.TrimSpace(val.Value) == "" {
			continue
		}
		// Discard values that fail the variable's own validation
		if err := v.ValidateValue(val.Value); err != nil {
			continue
		}
		out[key] = types.PrefillValue{
			Value:      strings.TrimSpace(val.Value),
			Confidence: clamp01(val.Confidence),
		}
	}
	return out, nil
}

func (g *LLMGenerator) Provider() string {
	return g.providerName
}

func (g *LLMGenerator) Model() string {
	return g.modelName
}

func (g *LLMGenerator) Close() error {
	g.client.close()
	return nil
}

// call runs one chat completion with bounded retry.
func (g *LLMGenerator) call(ctx context.Context, system, user string) (string, error) {
	raw, err := backoff.Retry(ctx, retrySchedule(), func() (string, error) {
		return g.client.complete(ctx, system, user)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w after %d retries: %v", ErrModelFailed, MaxRetries, err)
	}
	return raw, nil
}

// decodeModelJSON recovers a JSON object from model output and unmarshals it.
func decodeModelJSON(raw string, v interface{}) error {
	extracted := ExtractJSON(raw)
	if extracted == "" {
		return fmt.Errorf("%w: no JSON object in response", ErrBadModelOutput)
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	return nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Wire format for the combined extraction call

type wireVariable struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Example     string   `json:"example"`
	Required    bool     `json:"required"`
	Dtype       string   `json:"dtype"`
	Regex       string   `json:"regex"`
	EnumValues  []string `json:"enum_values"`
}

type wireQuestion struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
}

type wireClassification struct {
	IsLegalDocument    bool   `json:"is_legal_document"`
	SuggestedArchetype string `json:"suggested_archetype"`
	LegalJurisdiction  string `json:"legal_jurisdiction"`
}

type wireResult struct {
	TemplateName    string             `json:"template_name"`
	DocType         string             `json:"doc_type"`
	Jurisdiction    string             `json:"jurisdiction"`
	FileDescription string             `json:"file_description"`
	TemplateBody    string             `json:"template_body"`
	Variables       []wireVariable     `json:"variables"`
	Questions       []wireQuestion     `json:"questions"`
	SimilarityTags  []string           `json:"similarity_tags"`
	Classification  wireClassification `json:"classification"`
}

func (w *wireResult) toResult() *GenerationResult {
	res := &GenerationResult{
		Name:           w.TemplateName,
		DocType:        w.DocType,
		Jurisdiction:   w.Jurisdiction,
		Description:    w.FileDescription,
		Body:           w.TemplateBody,
		SimilarityTags: w.SimilarityTags,
		Classification: Classification{
			IsLegalDocument: w.Classification.IsLegalDocument,
			Archetype:       w.Classification.SuggestedArchetype,
			Jurisdiction:    w.Classification.LegalJurisdiction,
		},
	}
	for _, v := range w.Variables {
		res.Variables = append(res.Variables, types.Variable{
			Key:         v.Key,
			Label:       v.Label,
			Description: v.Description,
			Example:     v.Example,
			Required:    v.Required,
			DType:       types.VarType(v.Dtype),
			Regex:       v.Regex,
			EnumValues:  v.EnumValues,
		})
	}
	for _, q := range w.Questions {
		res.Questions = append(res.Questions, types.Question{
			VariableKey: q.Key,
			Prompt:      q.Prompt,
		})
	}
	return res
}
