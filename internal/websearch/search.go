package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSearchURL is the Exa search endpoint.
	DefaultSearchURL = "https://api.exa.ai/search"
	// EnvExaAPIKey is the environment variable holding the Exa key.
	EnvExaAPIKey = "DRAFTFORGE_EXA_API_KEY"

	// DefaultSearchTimeout bounds one search call when no timeout is
	// configured.
	DefaultSearchTimeout = 30 * time.Second
)

// Searcher finds candidate template pages for a drafting query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// ExaSearcher queries the Exa neural search API.
type ExaSearcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewExaSearcher creates a searcher against the Exa API. timeout bounds
// each search call; zero falls back to DefaultSearchTimeout.
func NewExaSearcher(apiKey string, timeout time.Duration, logger *zap.Logger) (*ExaSearcher, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExaSearcher{
		apiKey:  apiKey,
		baseURL: DefaultSearchURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Type       string      `json:"type"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Search runs a legal-enhanced query and returns up to limit results that
// look like actual template pages. An empty result set is not an error.
func (s *ExaSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	payload, err := json.Marshal(exaRequest{
		Query: EnhanceQuery(query),
		// Over-fetch so relevance filtering still fills the limit.
		NumResults: limit * 2,
		Type:       "neural",
		Contents:   exaContents{Text: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrSearchFailed, resp.StatusCode, string(body))
	}

	var parsed exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	results := make([]Result, 0, limit)
	for _, r := range parsed.Results {
		if ValidateURL(r.URL) != nil {
			continue
		}
		hit := Result{Title: r.Title, URL: r.URL, Text: r.Text, Score: r.Score}
		if !looksLikeTemplate(hit) {
			continue
		}
		results = append(results, hit)
		if len(results) >= limit {
			break
		}
	}

	s.logger.Debug("web search complete",
		zap.String("query", query),
		zap.Int("raw_results", len(parsed.Results)),
		zap.Int("kept", len(results)))
	return results, nil
}

// legalQueryTerms steer the search toward document templates rather than
// articles about them.
var legalQueryTerms = []string{
	"legal document template",
	"contract template",
	"agreement template",
	"legal form",
	"sample",
}

// EnhanceQuery appends legal template context to the user's query.
func EnhanceQuery(query string) string {
	parts := append([]string{query}, legalQueryTerms...)
	return strings.Join(parts, " ")
}

// templateKeywords mark a result as a likely template page when found in
// its title or URL.
var templateKeywords = []string{
	"template", "sample", "form", "draft", "example", "agreement", "contract",
}

// legalKeywords score how legal a result's content looks.
var legalKeywords = []string{
	"agreement", "contract", "terms", "liability", "indemnity", "warranty",
	"governing law", "jurisdiction", "party", "parties", "whereas", "hereby",
	"clause", "affidavit", "notice", "breach", "termination",
}

// looksLikeTemplate filters out results that are neither legal content nor
// template-shaped pages.
func looksLikeTemplate(r Result) bool {
	title := strings.ToLower(r.Title)
	url := strings.ToLower(r.URL)

	templateHit := false
	for _, kw := range templateKeywords {
		if strings.Contains(title, kw) || strings.Contains(url, kw) {
			templateHit = true
			break
		}
	}
	if !templateHit {
		return false
	}

	// With no content snapshot the title/URL check has to suffice.
	if r.Text == "" {
		return true
	}

	text := strings.ToLower(r.Text)
	score := 0
	for _, kw := range legalKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	return score >= 3
}
