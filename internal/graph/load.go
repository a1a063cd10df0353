package graph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/zheng/ctb/internal/metrics"
	"github.com/zheng/ctb/internal/trace"
)

// LoadOptions configures how a trace is read
type LoadOptions struct {
	// EntryLevel is the indentation level of entry lines; trace.AutoEntryLevel
	// takes it from the first entry record.
	EntryLevel int
	// StrictEntry rejects depth-0 records whose call type is not "entry".
	StrictEntry bool
}

// DefaultLoadOptions returns default load options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{EntryLevel: trace.AutoEntryLevel}
}

// Load reads the trace file at path and returns the frozen graph.
// Malformed lines are logged and skipped; failure to open or read the file
// returns an error wrapping ErrUnreadableInput.
func Load(path string, opts LoadOptions) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.GraphLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}
	defer f.Close()

	s, err := Read(f, opts)
	if err != nil {
		return nil, err
	}
	s.source.Path = path
	return s, nil
}

// Read builds a graph from a whole trace held by r.
func Read(r io.Reader, opts LoadOptions) (*Store, error) {
	start := time.Now()
	hasher := xxh3.New()
	rd := trace.NewReader(io.TeeReader(r, hasher), trace.WithEntryLevel(opts.EntryLevel))
	b := NewBuilder(WithStrictEntry(opts.StrictEntry))

	malformed := 0
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, trace.ErrMalformedRecord) {
			malformed++
			reportMalformed(err)
			continue
		}
		if err != nil {
			metrics.GraphLoads.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: line %d: %w", ErrUnreadableInput, rd.Lines()+1, err)
		}

		if err := b.Add(rec); err != nil {
			malformed++
			reportMalformed(err)
			continue
		}
		metrics.TraceRecords.WithLabelValues("parsed").Inc()
	}

	s := b.Freeze()
	s.source = SourceInfo{
		Checksum:  hasher.Sum64(),
		Lines:     rd.Lines(),
		Malformed: malformed,
		LoadedAt:  time.Now(),
	}

	stats := s.Stats()
	metrics.GraphLoads.WithLabelValues("ok").Inc()
	metrics.GraphLoadDuration.Observe(time.Since(start).Seconds())
	slog.Info("graph.load",
		"classes", stats.Classes,
		"methods", stats.Methods,
		"edges", stats.Edges,
		"entrypoints", stats.Entrypoints,
		"malformed", malformed,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return s, nil
}

func reportMalformed(err error) {
	outcome := "malformed"
	if errors.Is(err, ErrUnexpectedEntryType) {
		outcome = "rejected"
	}
	metrics.TraceRecords.WithLabelValues(outcome).Inc()

	var me *trace.MalformedError
	if errors.As(err, &me) {
		slog.Warn("trace.malformed", "line", me.Line, "reason", me.Reason, "text", me.Text)
		return
	}
	slog.Warn("trace.skipped", "err", err)
}
