package sink

import (
	"context"
	"sync"
)

// InMemory implements Sink with local maps, mimicking the document
// model: deltas for unseeded entities are missed, fields spring into
// existence on first applied delta.
type InMemory struct {
	mu      sync.Mutex
	docs    map[string]map[string]int64
	applies int
}

// NewInMemory returns an empty in-memory sink.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]map[string]int64)}
}

// Seed creates empty entities, the equivalent of documents existing
// before any counter targets them.
func (s *InMemory) Seed(entityIDs ...string) {
	s.mu.Lock()
	for _, id := range entityIDs {
		if s.docs[id] == nil {
			s.docs[id] = make(map[string]int64)
		}
	}
	s.mu.Unlock()
}

// Apply implements Sink.Apply.
func (s *InMemory) Apply(ctx context.Context, deltas []Delta) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++
	var rep Report
	for _, d := range deltas {
		doc, ok := s.docs[d.EntityID]
		if !ok {
			rep.Missed++
			continue
		}
		doc[d.FieldPath] += d.Value
		rep.Matched++
	}
	return rep, nil
}

// Value returns the current value of one field and whether it exists.
func (s *InMemory) Value(entityID, fieldPath string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[entityID]
	if !ok {
		return 0, false
	}
	v, ok := doc[fieldPath]
	return v, ok
}

// Applies returns how many bulk Apply calls the sink received.
func (s *InMemory) Applies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applies
}
