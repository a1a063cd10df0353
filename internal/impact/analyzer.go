package impact

import (
	"fmt"
	"strings"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
)

// Analyzer answers "what is affected if this method changes" over a call graph
type Analyzer struct {
	store *graph.Store
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(store *graph.Store) *Analyzer {
	return &Analyzer{store: store}
}

// Report represents the impact analysis of a method change
type Report struct {
	Target          graph.MethodRef   `json:"target"`
	DirectCallers   []graph.MethodRef `json:"direct_callers"`
	IndirectCallers []graph.MethodRef `json:"indirect_callers"`
	DirectCallees   []graph.MethodRef `json:"direct_callees"`
	IndirectCallees []graph.MethodRef `json:"indirect_callees"`
	// Entrypoints lists the VM entry points among the target and its callers.
	Entrypoints []graph.MethodRef `json:"entrypoints"`
}

// Analyze collects the callers and callees of target. A depth of 1 keeps only
// direct neighbours; 0 means unlimited.
func (a *Analyzer) Analyze(target graph.MethodRef, upstreamDepth, downstreamDepth int) (*Report, error) {
	if upstreamDepth < 0 || downstreamDepth < 0 {
		return nil, fmt.Errorf("depth must be >= 0")
	}

	report := &Report{Target: target}

	var err error
	report.DirectCallers, report.IndirectCallers, err = a.walk(target, graph.Upstream, upstreamDepth)
	if err != nil {
		return nil, err
	}
	report.DirectCallees, report.IndirectCallees, err = a.walk(target, graph.Downstream, downstreamDepth)
	if err != nil {
		return nil, err
	}

	reached := map[graph.MethodRef]bool{target: true}
	for _, ref := range report.DirectCallers {
		reached[ref] = true
	}
	for _, ref := range report.IndirectCallers {
		reached[ref] = true
	}
	for _, ref := range a.store.ListEntrypoints() {
		if reached[ref] {
			report.Entrypoints = append(report.Entrypoints, ref)
		}
	}

	return report, nil
}

// walk runs a breadth-first search from target and splits the visited methods
// into the first level and everything beyond it. Each method appears once.
func (a *Analyzer) walk(target graph.MethodRef, dir graph.Direction, maxDepth int) (direct, indirect []graph.MethodRef, err error) {
	next := a.store.ForwardEdges
	if dir == graph.Upstream {
		next = a.store.ReverseEdges
	}

	visited := map[graph.MethodRef]bool{target: true}
	frontier := []graph.MethodRef{target}
	for depth := 1; len(frontier) > 0 && (maxDepth == 0 || depth <= maxDepth); depth++ {
		var level []graph.MethodRef
		for _, ref := range frontier {
			edges, err := next(ref)
			if err != nil {
				return nil, nil, err
			}
			for _, e := range edges {
				other := e.Ref()
				if visited[other] {
					continue
				}
				visited[other] = true
				level = append(level, other)
			}
		}
		if depth == 1 {
			direct = level
		} else {
			indirect = append(indirect, level...)
		}
		frontier = level
	}
	return direct, indirect, nil
}

// FormatMarkdown formats the impact report as markdown
func (r *Report) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Change impact: %s\n\n", display.EscapeSignature(display.ShortRef(r.Target))))
	sb.WriteString(fmt.Sprintf("**Method:** `%s`\n\n", r.Target))

	writeTable := func(title, empty string, refs []graph.MethodRef) {
		sb.WriteString(fmt.Sprintf("### %s\n\n", title))
		if len(refs) == 0 {
			if empty != "" {
				sb.WriteString(fmt.Sprintf("_%s_\n\n", empty))
			}
			return
		}
		sb.WriteString("| Class | Method |\n")
		sb.WriteString("|-------|--------|\n")
		for _, ref := range refs {
			sb.WriteString(fmt.Sprintf("| `%s` | `%s` |\n", ref.Class, ref.Signature))
		}
		sb.WriteString("\n")
	}

	writeTable("Direct callers", "no direct callers", r.DirectCallers)
	if len(r.IndirectCallers) > 0 {
		writeTable("Indirect callers", "", r.IndirectCallers)
	}
	writeTable("Direct callees", "no direct callees", r.DirectCallees)
	if len(r.IndirectCallees) > 0 {
		writeTable("Indirect callees", "", r.IndirectCallees)
	}
	writeTable("Reachable from entry points", "not reached from any entry point", r.Entrypoints)

	return sb.String()
}

// FormatTree formats the impact report as two flat lists under the target
func (r *Report) FormatTree() string {
	var sb strings.Builder

	allCallers := append(append([]graph.MethodRef{}, r.DirectCallers...), r.IndirectCallers...)
	allCallees := append(append([]graph.MethodRef{}, r.DirectCallees...), r.IndirectCallees...)

	sb.WriteString(display.ShortRef(r.Target))
	sb.WriteString("\n\n")

	writeList := func(title string, refs []graph.MethodRef, direct int) {
		if len(refs) == 0 {
			sb.WriteString(title + "\n")
			sb.WriteString("└── (none)\n")
			return
		}
		sb.WriteString(fmt.Sprintf("%s (%d)\n", title, len(refs)))
		for i, ref := range refs {
			prefix := "├──"
			if i == len(refs)-1 {
				prefix = "└──"
			}
			kind := "direct  "
			if i >= direct {
				kind = "indirect"
			}
			sb.WriteString(fmt.Sprintf("%s %s  %s\n", prefix, kind, display.ShortRef(ref)))
		}
	}

	writeList("Callers", allCallers, len(r.DirectCallers))
	sb.WriteString("\n")
	writeList("Callees", allCallees, len(r.DirectCallees))

	return sb.String()
}

// Summary returns a brief summary of the impact report
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Callers: %d, Indirect Callers: %d, Direct Callees: %d, Indirect Callees: %d, Entry Points: %d",
		display.ShortRef(r.Target),
		len(r.DirectCallers),
		len(r.IndirectCallers),
		len(r.DirectCallees),
		len(r.IndirectCallees),
		len(r.Entrypoints),
	)
}
