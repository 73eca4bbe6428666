package types

import "time"

// Stage identifies a pipeline progress stage. Stages advance monotonically
// within a request; an emitted stage is never retracted.
type Stage string

const (
	StageReceived   Stage = "received"
	StageExtracting Stage = "extracting"
	StageEmbedding  Stage = "embedding"
	StageMatching   Stage = "matching"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// ProgressEvent is one observable pipeline transition.
type ProgressEvent struct {
	Stage Stage
	// Detail is optional human-readable context for the stage.
	Detail string
	// Code carries the error taxonomy code when Stage is StageFailed.
	Code string
	At   time.Time
}

// Reporter receives progress events. Implementations must not block; the
// pipeline calls them inline.
type Reporter func(ProgressEvent)
