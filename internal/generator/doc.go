// Package generator provides the model-backed capabilities of the pipeline:
// template extraction, candidate re-ranking, and answer prefill.
//
// # Combined extraction
//
// Generate makes ONE model call per source. The response carries the
// template body, the variable schema, user-facing questions, similarity
// tags, and a document classification. Sources that are not legal
// documents are reclassified onto the nearest legal archetype by the same
// call; only a source with no recognizable archetype fails with
// types.ErrClassificationAmbiguous.
//
// Model output is repaired before it leaves the package: variables the
// body never references are dropped, undeclared placeholders are demoted
// to literal text, and missing question prompts get defaults. The result
// always passes Template.Validate.
//
// # Providers
//
// Anthropic (messages API) and OpenAI (chat completions) over plain
// net/http, selected by configuration or environment. Calls retry with
// exponential backoff; exhausted transport retries wrap
// types.ErrCapabilityUnavailable, while unusable output wraps
// types.ErrGenerationFailed.
//
// # JSON recovery
//
// Models wrap JSON in code fences and emit comments and trailing commas.
// ExtractJSON tolerates all three before unmarshaling.
package generator
