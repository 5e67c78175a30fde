package scheduled

import "time"

// Handle controls a periodic scheduled task: the whole series, not a
// single occurrence.
type Handle struct {
	s *scheduler
	e *entry
}

// ID returns the scheduled task's identifier.
func (h *Handle) ID() string {
	return h.e.id
}

// Cancel stops future occurrences. A waiting or queued occurrence is
// cancelled outright; a running one finishes first unless mayInterrupt
// is true, in which case its context is cancelled. Cancel returns false
// if the series already ended.
func (h *Handle) Cancel(mayInterrupt bool) bool {
	s, e := h.s, h.e

	s.mu.Lock()
	switch e.state {
	case Completed, Cancelled:
		s.mu.Unlock()
		return false

	case Waiting, Queued:
		e.cancelled = true
		e.state = Cancelled
		s.updatePendingLocked()
		s.mu.Unlock()
		s.nudge()
		return true

	default: // Running
		e.cancelled = true
		cancel := e.cancelRun
		s.mu.Unlock()
		if mayInterrupt && cancel != nil {
			cancel()
		}
		return true
	}
}

// State returns the current lifecycle state of the series.
func (h *Handle) State() State {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.e.state
}

// NextRun returns the fire time of the next occurrence. Meaningful only
// while the series is waiting.
func (h *Handle) NextRun() time.Time {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.e.fireAt
}

// Runs returns how many occurrences have executed so far.
func (h *Handle) Runs() int64 {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.e.runs
}
