package orchestrator

import "sync"

// Signal is an explicit pause token threaded through long-running
// operations. Pausing closes a channel so sleeps can be interrupted;
// resuming installs a fresh channel. The zero value is not usable, call
// NewSignal.
type Signal struct {
	mu     sync.Mutex
	paused bool
	ch     chan struct{}
}

// NewSignal creates an unpaused signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Pause requests a pause. Idempotent.
func (s *Signal) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return
	}
	s.paused = true
	close(s.ch)
}

// Resume clears the pause request. Idempotent.
func (s *Signal) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.paused {
		return
	}
	s.paused = false
	s.ch = make(chan struct{})
}

// Paused reports whether a pause has been requested.
func (s *Signal) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}

// Done returns a channel closed while the signal is paused, for use in
// select statements alongside timers and context cancellation.
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ch
}
