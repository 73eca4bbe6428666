package types

import "errors"

// Domain errors shared across the pipeline. Callers use errors.Is to route
// on these; wrapped variants carry operation detail.
var (
	// ErrCapabilityUnavailable indicates a model-backed capability (embedding,
	// generation, re-ranking) failed transiently. The operation may be retried.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrGenerationFailed indicates the generator could not produce a usable
	// template from the source text after retries were exhausted.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrClassificationAmbiguous indicates the source could not be classified
	// as a legal document nor mapped onto any known legal archetype.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrNoMatchFound indicates no stored template survived the quality gate.
	ErrNoMatchFound = errors.New("no match found")

	// ErrFallbackExhausted indicates the web fallback terminated without
	// producing a template (no results, no usable content, or generation
	// failure downstream).
	ErrFallbackExhausted = errors.New("fallback exhausted")

	// ErrStoreConflict indicates a near-duplicate template was committed
	// concurrently; the earliest-committed row wins.
	ErrStoreConflict = errors.New("store write conflict")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller-supplied value failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// FailureReason names the terminal edge a web fallback run ended on.
type FailureReason string

const (
	ReasonNoResults        FailureReason = "no_results"
	ReasonNoUsableContent  FailureReason = "no_usable_content"
	ReasonGenerationFailed FailureReason = "generation_failed"
)

// ErrorCode returns the wire-level code for a pipeline error, suitable for
// logging fields and tool responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrCapabilityUnavailable):
		return "capability_unavailable"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrClassificationAmbiguous):
		return "classification_ambiguous"
	case errors.Is(err, ErrNoMatchFound):
		return "no_match_found"
	case errors.Is(err, ErrFallbackExhausted):
		return "fallback_exhausted"
	case errors.Is(err, ErrStoreConflict):
		return "store_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
