package websearch

import (
	"fmt"

	"github.com/draftforge/draftforge/pkg/types"
)

// Errors returned by search, fetch, and extraction.
var (
	// ErrNoAPIKey indicates the search provider has no credentials.
	ErrNoAPIKey = fmt.Errorf("%w: no web search API key configured", types.ErrCapabilityUnavailable)
	// ErrSearchFailed indicates the search provider call failed.
	ErrSearchFailed = fmt.Errorf("%w: web search failed", types.ErrCapabilityUnavailable)
	// ErrBlockedURL indicates a URL failed security validation.
	ErrBlockedURL = fmt.Errorf("%w: URL blocked", types.ErrInvalidInput)
	// ErrFetchFailed indicates the page could not be retrieved.
	ErrFetchFailed = fmt.Errorf("fetch failed")
	// ErrUnusableContent indicates the extracted text is too short to work with.
	ErrUnusableContent = fmt.Errorf("%w: extracted content unusable", types.ErrInvalidInput)
)

// Result is one web search hit. Text carries the provider's own content
// snapshot when available, which can make a separate fetch unnecessary.
type Result struct {
	Title string
	URL   string
	Text  string
	Score float64
}
