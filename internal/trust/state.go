// Package trust tracks whether the network channel is still considered
// trustworthy for the lifetime of the process.
package trust

import (
	"log/slog"
	"sync"
	"time"
)

// State records whether remote fetching is still permitted. It starts
// trusted and transitions to compromised exactly once; the transition is
// irreversible for the lifetime of the process. All fetch paths consult
// the same State instance.
type State struct {
	mu          sync.RWMutex
	compromised bool
	reason      string
	at          time.Time
}

// NewState returns a State in the trusted condition.
func NewState() *State {
	return &State{}
}

// Compromised reports whether the network channel has been marked
// compromised.
func (s *State) Compromised() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compromised
}

// Reason returns the reason recorded by the first successful Compromise
// call, or the empty string while still trusted.
func (s *State) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Compromise marks the network channel as compromised. Only the first
// call records its reason; later calls are no-ops so the original cause
// is never overwritten. It returns true if this call performed the
// transition.
func (s *State) Compromise(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compromised {
		return false
	}

	s.compromised = true
	s.reason = reason
	s.at = time.Now()

	slog.Warn("Network trust compromised, all further fetches will be refused",
		"reason", reason)
	return true
}

// CompromisedAt returns the time of the trust transition, or the zero
// time while still trusted.
func (s *State) CompromisedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.at
}
