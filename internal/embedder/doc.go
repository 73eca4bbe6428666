// Package embedder provides vector embedding generation for template and
// query text with multiple provider backends.
//
// # Providers
//
// Three providers are supported, selected via configuration or environment:
//
//   - jina: Jina AI API (jina-embeddings-v3, 1024 dimensions)
//   - openai: OpenAI API (text-embedding-3-small, 1536 dimensions)
//   - local: deterministic hash-derived vectors (384 dimensions), used for
//     offline development and tests
//
// # Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.Embed(ctx, documentText)
//	if err != nil {
//	    return err
//	}
//	// result.Vector is ready for similarity search
//
// # Text capping
//
// Input text is truncated to a fixed cap (1000 runes by default) before
// hashing and embedding. The opening of a legal document carries its title
// and recitals, which dominate semantic matching.
//
// # Caching and retries
//
// Embeddings are cached in an LRU keyed by SHA-256 of the truncated text;
// cache reads return deep copies. Remote API calls retry with exponential
// backoff (3 attempts, 100ms base, x2.0, capped at 5s) and respect context
// cancellation. Exhausted retries surface as ErrProviderFailed, which
// wraps types.ErrCapabilityUnavailable so callers can treat the failure
// as retryable.
package embedder
