package relay

import "sync"

// Tracker counts automated replies issued per identity. Counts are created
// lazily, only ever grow, and survive disconnects: the quota is per identity,
// not per connection. Entries live until the process exits.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Count returns the number of automated replies issued to the identity.
func (t *Tracker) Count(identityID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[identityID]
}

// Increment records one more automated reply and returns the new count.
func (t *Tracker) Increment(identityID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[identityID]++
	return t.counts[identityID]
}
