package graph

import "time"

// Store is a frozen call graph. All methods are read-only.
type Store struct {
	classes     []*ClassNode
	classIndex  map[string]int
	classNames  []string
	methods     []*MethodNode
	entrypoints []int
	edges       []CallEdge // insertion order
	build       BuildStats
	source      SourceInfo
}

// SourceInfo describes where a loaded Store came from
type SourceInfo struct {
	Path      string    `json:"path,omitempty"`
	Checksum  uint64    `json:"checksum"`
	Lines     int       `json:"lines"`
	Malformed int       `json:"malformed"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Stats summarizes a Store
type Stats struct {
	Classes     int        `json:"classes"`
	Methods     int        `json:"methods"`
	Edges       int        `json:"edges"`
	Entrypoints int        `json:"entrypoints"`
	Build       BuildStats `json:"build"`
	Source      SourceInfo `json:"source"`
}

// Stats returns node and edge counts.
func (s *Store) Stats() Stats {
	return Stats{
		Classes:     len(s.classes),
		Methods:     len(s.methods),
		Edges:       len(s.edges),
		Entrypoints: len(s.entrypoints),
		Build:       s.build,
		Source:      s.source,
	}
}

// Source returns information about the loaded file.
func (s *Store) Source() SourceInfo {
	return s.source
}

func (s *Store) lookupClass(name string) (*ClassNode, bool) {
	idx, ok := s.classIndex[name]
	if !ok {
		return nil, false
	}
	return s.classes[idx], true
}

func (s *Store) lookupMethod(class, signature string) (*MethodNode, error) {
	c, ok := s.lookupClass(class)
	if !ok {
		return nil, ErrClassNotFound
	}
	idx, ok := c.methods[signature]
	if !ok {
		return nil, ErrMethodNotFound
	}
	return s.methods[idx], nil
}

func (s *Store) ref(method int) MethodRef {
	m := s.methods[method]
	return MethodRef{Class: s.classes[m.Class].Name, Signature: m.Signature}
}
