package randutil

import (
	rand "math/rand/v2"
	"sync"
)

// Locked is a seedable random source safe for concurrent use. *rand.Rand
// itself is not goroutine-safe, and the orchestrator's fallback picks can
// happen from several in-flight requests at once.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocked returns a concurrency-safe source seeded deterministically.
func NewLocked(seed int64) *Locked {
	return &Locked{rng: New(seed)}
}

// IntN returns a uniform int in [0, n).
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}
