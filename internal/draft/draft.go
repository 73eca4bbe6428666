// Package draft renders filled-in documents from templates and persists
// them as instances.
package draft

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/pkg/types"
)

const frontmatterDelim = "---"

// frontmatter is the YAML header prepended to an exported template body.
type frontmatter struct {
	Name         string           `yaml:"name"`
	DocType      string           `yaml:"doc_type,omitempty"`
	Jurisdiction string           `yaml:"jurisdiction,omitempty"`
	Variables    []frontmatterVar `yaml:"variables,omitempty"`
}

type frontmatterVar struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label"`
	Type       string   `yaml:"type"`
	Required   bool     `yaml:"required,omitempty"`
	EnumValues []string `yaml:"enum_values,omitempty"`
}

// BuildFrontmatter returns the template body with a YAML frontmatter header
// describing the template and its variable schema.
func BuildFrontmatter(tpl *types.Template) (string, error) {
	fm := frontmatter{
		Name:         tpl.Name,
		DocType:      tpl.DocType,
		Jurisdiction: tpl.Jurisdiction,
	}
	for _, v := range tpl.Variables {
		fm.Variables = append(fm.Variables, frontmatterVar{
			Key:        v.Key,
			Label:      v.Label,
			Type:       string(v.DType),
			Required:   v.Required,
			EnumValues: v.EnumValues,
		})
	}

	encoded, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelim + "\n")
	sb.Write(encoded)
	sb.WriteString(frontmatterDelim + "\n\n")
	sb.WriteString(tpl.Body)
	return sb.String(), nil
}

// StripFrontmatter removes a leading YAML frontmatter block if present.
func StripFrontmatter(body string) string {
	if !strings.HasPrefix(body, frontmatterDelim+"\n") {
		return body
	}
	rest := body[len(frontmatterDelim)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelim+"\n")
	if idx < 0 {
		return body
	}
	return strings.TrimLeft(rest[idx+len(frontmatterDelim)+2:], "\n")
}

// Render substitutes answers into the template body and returns the draft
// along with the keys of required variables that have no answer. Answers
// are validated against the variable declarations first.
func Render(tpl *types.Template, answers map[string]string) (string, []string, error) {
	for key, value := range answers {
		v := tpl.Variable(key)
		if v == nil {
			return "", nil, fmt.Errorf("%w: unknown variable %q", types.ErrInvalidInput, key)
		}
		if err := v.ValidateValue(value); err != nil {
			return "", nil, err
		}
	}

	var missing []string
	body := StripFrontmatter(tpl.Body)
	for _, v := range tpl.Variables {
		value, ok := answers[v.Key]
		if !ok || strings.TrimSpace(value) == "" {
			if v.Required {
				missing = append(missing, v.Key)
			}
			continue
		}
		body = strings.ReplaceAll(body, "{{"+v.Key+"}}", value)
	}
	sort.Strings(missing)
	return body, missing, nil
}

// Materialize renders a complete draft and persists it as an instance.
// Missing required answers fail the call rather than producing a draft
// with unfilled slots.
func Materialize(ctx context.Context, s store.Store, tpl *types.Template, query string, answers map[string]string) (*types.Instance, error) {
	body, missing, err := Render(tpl, answers)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required answers: %s",
			types.ErrInvalidInput, strings.Join(missing, ", "))
	}

	inst := &types.Instance{
		TemplateID: tpl.ID,
		UserQuery:  query,
		Answers:    answers,
		DraftMD:    body,
	}
	if err := s.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("persist instance: %w", err)
	}
	return inst, nil
}
