package loop

import (
	"sync"
	"time"
)

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler requests a callback for the next frame. The returned function
// cancels the request if it has not fired yet.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// FrameScheduler paces frames to a target rate on a timer. If a frame ran
// long the next one fires immediately.
type FrameScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewFrameScheduler returns a scheduler for fps frames per second.
func NewFrameScheduler(fps int) *FrameScheduler {
	if fps <= 0 {
		fps = 60
	}
	return &FrameScheduler{interval: time.Second / time.Duration(fps)}
}

// Interval returns the target frame duration.
func (s *FrameScheduler) Interval() time.Duration {
	return s.interval
}

// Schedule fires fn one interval after the previous frame was due.
func (s *FrameScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	now := time.Now()
	if s.next.IsZero() || s.next.Before(now) {
		s.next = now
	}
	wait := s.next.Sub(now)
	s.next = s.next.Add(s.interval)
	s.mu.Unlock()

	t := time.AfterFunc(wait, fn)
	return func() { t.Stop() }
}

// ManualScheduler holds the pending callback until Fire is called.
type ManualScheduler struct {
	mu      sync.Mutex
	pending func()
	seq     uint64
}

// Schedule stores fn as the pending callback.
func (s *ManualScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.pending = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq == id {
			s.pending = nil
		}
	}
}

// Pending reports whether a callback is waiting.
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Fire runs the pending callback, if any, and reports whether one ran.
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
