// Package fallback generates a template from the web when no stored one
// matches a drafting request.
//
// A run is a small state machine: search for candidate pages, extract the
// first usable document (candidates fetched concurrently, picked in rank
// order), generate a template from its text, then embed and persist it
// behind the duplicate gate. States advance monotonically and a run aborts
// between states when its context is cancelled.
//
// Terminal failures carry a reason: no_results when the search comes back
// empty, no_usable_content when every candidate page is too thin to work
// with, generation_failed when the model cannot turn the extracted text
// into a template. All three match types.ErrFallbackExhausted under
// errors.Is; FailureReasonOf recovers the specific edge.
package fallback
