package graph

import (
	"fmt"
	"sort"
	"strings"
)

// MethodRef names a method by class and signature
type MethodRef struct {
	Class     string `json:"class"`
	Signature string `json:"signature"`
}

// String returns "Class.signature".
func (r MethodRef) String() string {
	return r.Class + "." + r.Signature
}

// MethodSummary is a method listing entry with edge counts
type MethodSummary struct {
	Signature    string `json:"signature"`
	ForwardCount int    `json:"forward_count"`
	ReverseCount int    `json:"reverse_count"`
}

// ClassInfo describes a class and its methods, sorted by signature
type ClassInfo struct {
	Name    string          `json:"name"`
	Methods []MethodSummary `json:"methods"`
}

// EdgeInfo is one edge seen from a method: the phrase and the method on the
// other end. For reverse edges Type holds the inverted phrase.
type EdgeInfo struct {
	Type      string `json:"type"`
	Class     string `json:"class"`
	Signature string `json:"signature"`
}

// Ref returns the method on the other end of the edge.
func (e EdgeInfo) Ref() MethodRef {
	return MethodRef{Class: e.Class, Signature: e.Signature}
}

// MethodInfo describes a method with both edge directions
type MethodInfo struct {
	Class     string     `json:"class"`
	Signature string     `json:"signature"`
	Forward   []EdgeInfo `json:"forward"`
	Reverse   []EdgeInfo `json:"reverse"`
}

// Call is a single edge with both endpoints, as recorded in the trace
type Call struct {
	Type   string    `json:"type"`
	Caller MethodRef `json:"caller"`
	Callee MethodRef `json:"callee"`
}

// ListClasses returns all class names in ascending order.
func (s *Store) ListClasses() []string {
	out := make([]string, len(s.classNames))
	copy(out, s.classNames)
	return out
}

// ListMethods returns the methods of a class in ascending signature order.
func (s *Store) ListMethods(class string) ([]MethodSummary, error) {
	c, ok := s.lookupClass(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, class)
	}
	out := make([]MethodSummary, 0, len(c.signatures))
	for _, sig := range c.signatures {
		m := s.methods[c.methods[sig]]
		out = append(out, MethodSummary{
			Signature:    sig,
			ForwardCount: len(m.Forward),
			ReverseCount: len(m.Reverse),
		})
	}
	return out, nil
}

// Methods returns every method in order of first appearance.
func (s *Store) Methods() []MethodRef {
	out := make([]MethodRef, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, s.ref(m.Index))
	}
	return out
}

// Calls returns every edge once, in the order it was first recorded.
// Per method, this is also the order of its forward and reverse lists.
func (s *Store) Calls() []Call {
	out := make([]Call, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, Call{Type: string(e.Type), Caller: s.ref(e.Caller), Callee: s.ref(e.Callee)})
	}
	return out
}

// ListEntrypoints returns entry points in order of first appearance.
func (s *Store) ListEntrypoints() []MethodRef {
	out := make([]MethodRef, 0, len(s.entrypoints))
	for _, idx := range s.entrypoints {
		out = append(out, s.ref(idx))
	}
	return out
}

// GetClass returns a class or an error wrapping ErrClassNotFound.
func (s *Store) GetClass(name string) (*ClassInfo, error) {
	methods, err := s.ListMethods(name)
	if err != nil {
		return nil, err
	}
	return &ClassInfo{Name: name, Methods: methods}, nil
}

// GetMethod returns a method with its edges, or an error wrapping
// ErrClassNotFound or ErrMethodNotFound.
func (s *Store) GetMethod(class, signature string) (*MethodInfo, error) {
	m, err := s.lookupMethod(class, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, MethodRef{Class: class, Signature: signature})
	}
	return &MethodInfo{
		Class:     class,
		Signature: signature,
		Forward:   s.forward(m),
		Reverse:   s.reverse(m),
	}, nil
}

// ForwardEdges lists the calls made by a method.
func (s *Store) ForwardEdges(ref MethodRef) ([]EdgeInfo, error) {
	m, err := s.lookupMethod(ref.Class, ref.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	return s.forward(m), nil
}

// ReverseEdges lists the calls made into a method, with inverted phrases.
func (s *Store) ReverseEdges(ref MethodRef) ([]EdgeInfo, error) {
	m, err := s.lookupMethod(ref.Class, ref.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	return s.reverse(m), nil
}

func (s *Store) forward(m *MethodNode) []EdgeInfo {
	out := make([]EdgeInfo, 0, len(m.Forward))
	for _, e := range m.Forward {
		callee := s.ref(e.Callee)
		out = append(out, EdgeInfo{Type: string(e.Type), Class: callee.Class, Signature: callee.Signature})
	}
	return out
}

func (s *Store) reverse(m *MethodNode) []EdgeInfo {
	out := make([]EdgeInfo, 0, len(m.Reverse))
	for _, e := range m.Reverse {
		caller := s.ref(e.Caller)
		out = append(out, EdgeInfo{Type: Invert(e.Type), Class: caller.Class, Signature: caller.Signature})
	}
	return out
}

// Search returns methods whose "Class.signature" contains pattern, ignoring
// case. Exact method-name matches come first, then name prefixes, then any
// other match. limit <= 0 means no limit.
func (s *Store) Search(pattern string, limit int) []MethodRef {
	needle := strings.ToLower(strings.TrimSpace(pattern))
	if needle == "" {
		return nil
	}

	type hit struct {
		ref  MethodRef
		rank int
	}
	var hits []hit
	for _, m := range s.methods {
		ref := s.ref(m.Index)
		full := strings.ToLower(ref.String())
		if !strings.Contains(full, needle) {
			continue
		}
		name := strings.ToLower(methodName(m.Signature))
		rank := 2
		switch {
		case name == needle:
			rank = 0
		case strings.HasPrefix(name, needle):
			rank = 1
		}
		hits = append(hits, hit{ref: ref, rank: rank})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		if hits[i].ref.Class != hits[j].ref.Class {
			return hits[i].ref.Class < hits[j].ref.Class
		}
		return hits[i].ref.Signature < hits[j].ref.Signature
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]MethodRef, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ref)
	}
	return out
}

// methodName strips the parameter list: "run(int)" -> "run"
func methodName(signature string) string {
	if idx := strings.IndexByte(signature, '('); idx >= 0 {
		return signature[:idx]
	}
	return signature
}
