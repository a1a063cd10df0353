// Package graph builds and queries the bidirectional call graph of a trace.
//
// # Lifecycle
//
// A graph is built once by a Builder fed with trace records in file order,
// then frozen into a Store:
//  1. Create with NewBuilder()
//  2. Feed records with Add()
//  3. Call Freeze() to obtain the Store
//  4. Query the Store from any number of goroutines
//
// Load does all of the above for a file on disk.
//
// # Thread Safety
//
// Builder is NOT safe for concurrent use; the nesting stack has no meaningful
// concurrent access pattern. Store is never modified after Freeze and can be
// read without synchronization. Handle publishes a Store to servers and lets a
// reload swap in a new one atomically.
package graph

import (
	"errors"
	"fmt"

	"github.com/zheng/ctb/internal/trace"
)

var (
	// ErrNotFound is the absence outcome of a query.
	ErrNotFound = errors.New("not found")

	// ErrClassNotFound is returned when no class has the requested name.
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)

	// ErrMethodNotFound is returned when the class exists but has no method
	// with the requested signature.
	ErrMethodNotFound = fmt.Errorf("method %w", ErrNotFound)

	// ErrGraphFrozen is returned by Add after Freeze.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrDepthGap is returned for a record nested more than one level below
	// the previous one. It is a malformed record.
	ErrDepthGap = fmt.Errorf("%w: depth skips a nesting level", trace.ErrMalformedRecord)

	// ErrUnexpectedEntryType is returned in strict mode for depth-0 records
	// whose call type is not "entry".
	ErrUnexpectedEntryType = errors.New("unexpected call type on entry point")

	// ErrUnreadableInput wraps I/O failures while reading a trace.
	ErrUnreadableInput = errors.New("unreadable trace input")
)
