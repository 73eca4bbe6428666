package websearch

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/pkg/types"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://example.com/nda-template", false},
		{"http rejected", "http://example.com", true},
		{"localhost", "https://localhost/x", true},
		{"loopback ip", "https://127.0.0.1/x", true},
		{"private ip", "https://192.168.1.10/x", true},
		{"cgnat ip", "https://100.64.0.1/x", true},
		{"local domain", "https://fileserver.local/x", true},
		{"internal domain", "https://api.corp.internal/x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.0.0.1", "172.16.5.5", "192.168.0.1", "127.0.0.1", "169.254.1.1", "100.64.0.1", "::1", "fc00::1", "fe80::1", "::ffff:192.168.1.1"}
	for _, s := range private {
		if !isPrivateIP(net.ParseIP(s)) {
			t.Errorf("isPrivateIP(%s) = false, want true", s)
		}
	}
	public := []string{"8.8.8.8", "1.1.1.1", "2606:4700::1111"}
	for _, s := range public {
		if isPrivateIP(net.ParseIP(s)) {
			t.Errorf("isPrivateIP(%s) = true, want false", s)
		}
	}
}

func TestSearchFiltersResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var req exaRequest
		require.NoError(t, jsonDecode(r, &req))
		gotQuery = req.Query

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "Mutual NDA Template", "url": "https://example.com/nda-template", "text": "This agreement between the parties, governing law, termination and liability clauses hereby...", "score": 0.91},
			{"title": "Blog about cooking", "url": "https://example.com/recipes", "text": "How to bake bread", "score": 0.5},
			{"title": "Lease form", "url": "http://example.com/lease", "text": "", "score": 0.8},
			{"title": "Service agreement sample", "url": "https://example.org/service-agreement", "text": "", "score": 0.7}
		]}`))
	}))
	defer srv.Close()

	s, err := NewExaSearcher("test-key", 0, nil)
	require.NoError(t, err)
	s.baseURL = srv.URL

	results, err := s.Search(context.Background(), "nda for a contractor", 5)
	require.NoError(t, err)

	// Non-template content dropped, http URL dropped
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com/nda-template", results[0].URL)
	assert.Equal(t, "https://example.org/service-agreement", results[1].URL)

	assert.True(t, strings.HasPrefix(gotQuery, "nda for a contractor"))
	assert.Contains(t, gotQuery, "legal document template")
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, err := NewExaSearcher("test-key", 0, nil)
	require.NoError(t, err)
	s.baseURL = srv.URL

	_, err = s.Search(context.Background(), "q", 3)
	assert.ErrorIs(t, err, types.ErrCapabilityUnavailable)
}

func TestNewExaSearcherNoKey(t *testing.T) {
	_, err := NewExaSearcher("", 0, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSearchHonorsConfiguredTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	s, err := NewExaSearcher("test-key", 50*time.Millisecond, nil)
	require.NoError(t, err)
	s.baseURL = srv.URL

	_, err = s.Search(context.Background(), "nda", 3)
	assert.ErrorIs(t, err, types.ErrCapabilityUnavailable)
}

func TestNewExaSearcherDefaultTimeout(t *testing.T) {
	s, err := NewExaSearcher("test-key", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchTimeout, s.client.Timeout)
}

func TestLooksLikeTemplate(t *testing.T) {
	assert.True(t, looksLikeTemplate(Result{Title: "Free NDA Template", URL: "https://x.com/a"}))
	assert.True(t, looksLikeTemplate(Result{Title: "Downloads", URL: "https://x.com/lease-sample"}))
	assert.False(t, looksLikeTemplate(Result{Title: "News", URL: "https://x.com/news", Text: "weather today"}))
	assert.False(t, looksLikeTemplate(Result{
		Title: "Contract law explained",
		URL:   "https://x.com/contract-law",
		Text:  "a history essay with no legal drafting content",
	}))
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
