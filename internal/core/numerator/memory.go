package numerator

import (
	"context"
	"sync"
	"time"
)

// Memory is a Generator keeping counters in process. It backs tests and
// local tooling.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

var _ Generator = (*Memory)(nil)

// NewMemory creates an empty in-memory generator.
func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int64)}
}

// Seed sets the last issued value of a series.
func (m *Memory) Seed(s Series, at time.Time, last int64) {
	m.mu.Lock()
	m.counters[s.Key(at)] = last
	m.mu.Unlock()
}

func (m *Memory) Next(_ context.Context, s Series, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := s.Key(at)
	m.counters[key]++
	return s.Format(at, m.counters[key]), nil
}
