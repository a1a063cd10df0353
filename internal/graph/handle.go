package graph

import (
	"sync/atomic"

	"github.com/zheng/ctb/internal/metrics"
)

// Handle publishes the current Store to concurrent readers. Replacing it
// swaps the whole graph; a Store itself is never modified.
type Handle struct {
	current atomic.Pointer[Store]
}

// NewHandle creates a Handle holding s
func NewHandle(s *Store) *Handle {
	h := &Handle{}
	h.Replace(s)
	return h
}

// Store returns the current graph.
func (h *Handle) Store() *Store {
	return h.current.Load()
}

// Replace publishes s and returns the previous graph.
func (h *Handle) Replace(s *Store) *Store {
	stats := s.Stats()
	metrics.GraphClasses.Set(float64(stats.Classes))
	metrics.GraphMethods.Set(float64(stats.Methods))
	metrics.GraphEdges.Set(float64(stats.Edges))
	return h.current.Swap(s)
}
