package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is invoked after each routine completes with the number of
// routines finished so far, the known total, and the routine's name.
type ProgressFunc func(current, total int, name string)

// Tracker counts analyzed routines across one or more modules. It is safe
// for concurrent use; each module analysis adds its routine count up front
// and ticks as routines finish.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker that reports through callback on every tick.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n routines.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Tick marks the named routine as finished, failed or not.
func (t *Tracker) Tick(name string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), name)
	}
}

// Current returns the number of routines finished so far.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the expected routine count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context carrying the tracker, for extraction inside
// the analysis loop.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the tracker, or nil when none was attached.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
