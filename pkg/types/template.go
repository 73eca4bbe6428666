package types

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Provenance records where a template came from.
type Provenance string

const (
	SourceUpload    Provenance = "upload"
	SourceWeb       Provenance = "web"
	SourceGenerated Provenance = "generated"
)

// Template is a reusable legal document template. The Body is markdown with
// {{key}} placeholders; every placeholder must correspond to a declared
// Variable and vice versa.
type Template struct {
	ID             string
	Name           string
	DocType        string
	Jurisdiction   string
	Description    string
	Body           string
	SimilarityTags []string
	Embedding      []float32
	Source         Provenance
	SourceURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Variables []Variable
}

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Placeholders returns the distinct {{key}} names referenced by the body,
// in first-appearance order.
func Placeholders(body string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Validate checks structural integrity: required fields, valid variables,
// and agreement between body placeholders and declared variables.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: template body is empty", ErrInvalidInput)
	}
	declared := make(map[string]bool, len(t.Variables))
	for i := range t.Variables {
		v := &t.Variables[i]
		if err := v.Validate(); err != nil {
			return err
		}
		if declared[v.Key] {
			return fmt.Errorf("%w: duplicate variable key %q", ErrInvalidInput, v.Key)
		}
		declared[v.Key] = true
	}

	referenced := Placeholders(t.Body)
	for _, key := range referenced {
		if !declared[key] {
			return fmt.Errorf("%w: body references undeclared variable %q", ErrInvalidInput, key)
		}
	}
	refSet := make(map[string]bool, len(referenced))
	for _, key := range referenced {
		refSet[key] = true
	}
	var orphans []string
	for key := range declared {
		if !refSet[key] {
			orphans = append(orphans, key)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return fmt.Errorf("%w: variables not referenced by body: %s",
			ErrInvalidInput, strings.Join(orphans, ", "))
	}
	return nil
}

// Variable returns the declared variable for key, or nil.
func (t *Template) Variable(key string) *Variable {
	for i := range t.Variables {
		if t.Variables[i].Key == key {
			return &t.Variables[i]
		}
	}
	return nil
}
