package mocks

import (
	"context"
	"sync"

	"dmsapi/internal/audit"
)

// Recorder captures entries for assertions.
type Recorder struct {
	mu      sync.Mutex
	Entries []audit.Entry
}

func (r *Recorder) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
}

// Actions returns the recorded actions in order.
func (r *Recorder) Actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Action)
	}
	return out
}
