package graph

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/zheng/ctb/internal/trace"
)

// BuildStats counts what the builder saw
type BuildStats struct {
	Records           int `json:"records"`
	Skipped           int `json:"skipped"`
	UnexpectedEntries int `json:"unexpected_entries"`
}

// Builder folds a depth-first record stream into a call graph
type Builder struct {
	classes    []*ClassNode
	classIndex map[string]int
	methods    []*MethodNode

	entrypoints []int
	entrySeen   map[int]struct{}
	edges       map[CallEdge]struct{}
	order       []CallEdge

	stack       []int // method indices of the current call lineage
	strictEntry bool
	frozen      bool
	stats       BuildStats
}

// BuilderOption configures the builder
type BuilderOption func(*Builder)

// WithStrictEntry rejects depth-0 records whose call type is not "entry"
// instead of registering them with a warning.
func WithStrictEntry(strict bool) BuilderOption {
	return func(b *Builder) {
		b.strictEntry = strict
	}
}

// NewBuilder creates a new graph builder
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		classIndex: make(map[string]int),
		entrySeen:  make(map[int]struct{}),
		edges:      make(map[CallEdge]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add processes one record. A returned error means the record was skipped;
// the builder stays usable for the next record.
func (b *Builder) Add(rec trace.Record) error {
	if b.frozen {
		return ErrGraphFrozen
	}
	if rec.Depth < 0 || rec.Depth > len(b.stack) {
		b.stats.Skipped++
		return fmt.Errorf("line %d: %w", rec.Line, ErrDepthGap)
	}
	if rec.IsEntry() && rec.CallType != trace.EntryCallType {
		if b.strictEntry {
			b.stats.Skipped++
			return fmt.Errorf("line %d: %w: %q", rec.Line, ErrUnexpectedEntryType, rec.CallType)
		}
		b.stats.UnexpectedEntries++
		slog.Warn("graph.entry.unexpected_type", "line", rec.Line, "call_type", rec.CallType)
	}

	b.stack = b.stack[:rec.Depth]
	callee := b.method(b.class(rec.Class), rec.Method)
	b.stack = append(b.stack, callee)
	b.stats.Records++

	if rec.IsEntry() {
		if _, ok := b.entrySeen[callee]; !ok {
			b.entrySeen[callee] = struct{}{}
			b.entrypoints = append(b.entrypoints, callee)
		}
		return nil
	}

	b.link(CallEdge{
		Type:   CallType(rec.CallType),
		Caller: b.stack[rec.Depth-1],
		Callee: callee,
	})
	return nil
}

// class returns the index of the named class, creating it on first use
func (b *Builder) class(name string) int {
	if idx, ok := b.classIndex[name]; ok {
		return idx
	}
	idx := len(b.classes)
	b.classes = append(b.classes, &ClassNode{
		Index:   idx,
		Name:    name,
		methods: make(map[string]int),
	})
	b.classIndex[name] = idx
	return idx
}

// method returns the index of a method within a class, creating it on first use
func (b *Builder) method(class int, signature string) int {
	c := b.classes[class]
	if idx, ok := c.methods[signature]; ok {
		return idx
	}
	idx := len(b.methods)
	b.methods = append(b.methods, &MethodNode{
		Index:     idx,
		Class:     class,
		Signature: signature,
	})
	c.methods[signature] = idx
	return idx
}

// link records an edge on both endpoints unless it already exists
func (b *Builder) link(e CallEdge) {
	if _, ok := b.edges[e]; ok {
		return
	}
	b.edges[e] = struct{}{}
	b.order = append(b.order, e)
	b.methods[e.Caller].Forward = append(b.methods[e.Caller].Forward, e)
	b.methods[e.Callee].Reverse = append(b.methods[e.Callee].Reverse, e)
}

// Depth returns the current size of the frame stack.
func (b *Builder) Depth() int {
	return len(b.stack)
}

// Stats returns the counters collected so far.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Freeze finishes the build and returns the immutable Store.
// Further calls to Add fail with ErrGraphFrozen.
func (b *Builder) Freeze() *Store {
	b.frozen = true
	b.stack = nil

	names := make([]string, 0, len(b.classes))
	for _, c := range b.classes {
		names = append(names, c.Name)
		c.signatures = make([]string, 0, len(c.methods))
		for sig := range c.methods {
			c.signatures = append(c.signatures, sig)
		}
		sort.Strings(c.signatures)
	}
	sort.Strings(names)

	return &Store{
		classes:     b.classes,
		classIndex:  b.classIndex,
		classNames:  names,
		methods:     b.methods,
		entrypoints: b.entrypoints,
		edges:       b.order,
		build:       b.stats,
	}
}
