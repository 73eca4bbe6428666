package pipeline

import (
	"sync"

	"github.com/draftforge/draftforge/pkg/types"
)

// Trail accumulates progress events so a caller can return the full
// sequence once a request finishes. Safe for concurrent reporters.
type Trail struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

// Report appends an event. It satisfies types.Reporter via method value.
func (t *Trail) Report(ev types.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a copy of the recorded sequence.
func (t *Trail) Events() []types.ProgressEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.ProgressEvent, len(t.events))
	copy(out, t.events)
	return out
}
