// Package dedupe tracks which external game ids a reconciliation pass has
// already handled.
package dedupe

import (
	"sync"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// Deduper records seen game ids so each game is processed at most once per pass.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen, recording it if not.
	SeenAndRecord(id model.GameID) bool

	// Contains reports whether id is recorded without recording it.
	Contains(id model.GameID) bool

	Size() int
}

type seenSet struct {
	mu   sync.Mutex
	seen map[model.GameID]struct{}
}

// NewSeenSet creates an empty, unbounded seen-set. A new one is used for
// every pass, so nothing is ever evicted.
func NewSeenSet(opts ...Option) Deduper {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &seenSet{seen: make(map[model.GameID]struct{}, o.capacity)}
}

func (s *seenSet) SeenAndRecord(id model.GameID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

func (s *seenSet) Contains(id model.GameID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

func (s *seenSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
