// Package pipeline coordinates the template lifecycle across the
// capability stages: embedding, generation, retrieval, quality gating,
// and the web fallback.
//
// Ingest turns a source document into a stored template. Generation and
// embedding run concurrently and the join waits for both branches before
// deciding anything; when both fail, the embedding error is reported.
// The result passes the duplicate gate before it is written, and the
// store re-checks inside its transaction, so concurrent ingests of
// near-identical documents still collapse to a single template.
//
// Match resolves a drafting query. The query is embedded, the nearest
// stored templates retrieved, and the quality gate decides whether the
// best one is good enough to reuse. On rejection the web fallback takes
// over when enabled; its product feeds the same question derivation as a
// stored match, so callers see one shape either way.
//
// Both flows report progress through a types.Reporter callback. Events
// advance monotonically and are never retracted; a terminal failure event
// carries the taxonomy error code. Trail is a ready-made reporter that
// records the sequence for inclusion in a response.
package pipeline
