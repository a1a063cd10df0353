package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
)

// Exporter writes a frozen call graph to other formats
type Exporter struct {
	store *graph.Store
}

// NewExporter creates a new exporter
func NewExporter(store *graph.Store) *Exporter {
	return &Exporter{store: store}
}

// ExportOptions configures the Markdown report
type ExportOptions struct {
	IncludeMermaid bool
	IncludeEdges   bool
	MaxDepth       int
	Title          string
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeMermaid: true,
		IncludeEdges:   true,
		MaxDepth:       2,
		Title:          "Call tree",
	}
}

// Document is the JSON export layout
type Document struct {
	Source      graph.SourceInfo  `json:"source"`
	Stats       graph.Stats       `json:"stats"`
	Entrypoints []graph.MethodRef `json:"entrypoints"`
	Classes     []ClassDocument   `json:"classes"`
}

// ClassDocument is one class of a Document
type ClassDocument struct {
	Name    string             `json:"name"`
	Methods []graph.MethodInfo `json:"methods"`
}

// JSON writes the whole graph as one JSON document.
func (e *Exporter) JSON(w io.Writer) error {
	doc := Document{
		Source:      e.store.Source(),
		Stats:       e.store.Stats(),
		Entrypoints: e.store.ListEntrypoints(),
	}
	for _, cls := range e.store.ListClasses() {
		methods, err := e.store.ListMethods(cls)
		if err != nil {
			return err
		}
		cd := ClassDocument{Name: cls, Methods: make([]graph.MethodInfo, 0, len(methods))}
		for _, m := range methods {
			info, err := e.store.GetMethod(cls, m.Signature)
			if err != nil {
				return err
			}
			cd.Methods = append(cd.Methods, *info)
		}
		doc.Classes = append(doc.Classes, cd)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Markdown writes a human readable report: entry points, optionally a Mermaid
// diagram of the calls below them, then one section per class.
func (e *Exporter) Markdown(w io.Writer, opts ExportOptions) error {
	stats := e.store.Stats()

	// Header
	fmt.Fprintf(w, "# %s\n\n", opts.Title)
	fmt.Fprintf(w, "> Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if stats.Source.Path != "" {
		fmt.Fprintf(w, "> Source: `%s` (%d lines, %d skipped)\n", stats.Source.Path, stats.Source.Lines, stats.Source.Malformed)
	}
	fmt.Fprintf(w, "> Classes: %d | Methods: %d | Call edges: %d | Entry points: %d\n\n",
		stats.Classes, stats.Methods, stats.Edges, stats.Entrypoints)

	entries := e.store.ListEntrypoints()
	fmt.Fprintf(w, "## Entry points\n\n")
	if len(entries) == 0 {
		fmt.Fprintf(w, "_none_\n\n")
	}
	for _, ref := range entries {
		fmt.Fprintf(w, "- `%s`.%s\n", ref.Class, display.EscapeSignature(ref.Signature))
	}
	fmt.Fprintf(w, "\n")

	if opts.IncludeMermaid && len(entries) > 0 {
		if err := e.writeCallDiagram(w, entries, opts.MaxDepth); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "---\n\n## Classes\n\n")
	for _, cls := range e.store.ListClasses() {
		if err := e.writeClassSection(w, cls, opts); err != nil {
			return err
		}
	}
	return nil
}

// writeCallDiagram writes a Mermaid flowchart of the calls reachable from the
// entry points within maxDepth levels.
func (e *Exporter) writeCallDiagram(w io.Writer, entries []graph.MethodRef, maxDepth int) error {
	fmt.Fprintf(w, "## Call diagram\n\n```mermaid\nflowchart LR\n")

	ids := make(map[graph.MethodRef]string)
	nodeID := func(ref graph.MethodRef) string {
		if id, ok := ids[ref]; ok {
			return id
		}
		id := fmt.Sprintf("m%d", len(ids))
		ids[ref] = id
		fmt.Fprintf(w, "    %s[\"%s\"]\n", id, mermaidLabel(display.ShortRef(ref)))
		return id
	}

	seen := make(map[string]bool)
	var walk func(from graph.MethodRef, nodes []*graph.TreeNode)
	walk = func(from graph.MethodRef, nodes []*graph.TreeNode) {
		for _, n := range nodes {
			to := n.Edge.Ref()
			edge := nodeID(from) + "|" + n.Edge.Type + "|" + nodeID(to)
			if !seen[edge] {
				seen[edge] = true
				fmt.Fprintf(w, "    %s -->|%s| %s\n", ids[from], n.Edge.Type, ids[to])
			}
			walk(to, n.Children)
		}
	}

	for _, ref := range entries {
		tree, err := e.store.CallTree(ref, graph.Downstream, maxDepth)
		if err != nil {
			return err
		}
		nodeID(ref)
		walk(ref, tree)
	}

	fmt.Fprintf(w, "```\n\n")
	return nil
}

// writeClassSection writes the method table of a class
func (e *Exporter) writeClassSection(w io.Writer, cls string, opts ExportOptions) error {
	methods, err := e.store.ListMethods(cls)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "### %s\n\n", cls)

	// Table header
	fmt.Fprintf(w, "| Method | IN | OUT |\n")
	fmt.Fprintf(w, "|--------|----|-----|\n")
	for _, m := range methods {
		fmt.Fprintf(w, "| `%s` | %d | %d |\n", tableCell(m.Signature), m.ReverseCount, m.ForwardCount)
	}
	fmt.Fprintf(w, "\n")

	if !opts.IncludeEdges {
		return nil
	}
	for _, m := range methods {
		if m.ForwardCount == 0 && m.ReverseCount == 0 {
			continue
		}
		info, err := e.store.GetMethod(cls, m.Signature)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "#### %s\n\n", display.EscapeSignature(m.Signature))
		writeEdgeList(w, "Calling", info.Forward)
		writeEdgeList(w, "Called by", info.Reverse)
	}
	return nil
}

func writeEdgeList(w io.Writer, title string, edges []graph.EdgeInfo) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintf(w, "**%s:**\n\n", title)
	for _, edge := range edges {
		fmt.Fprintf(w, "- %s `%s`.%s\n", edge.Type, edge.Class, display.EscapeSignature(edge.Signature))
	}
	fmt.Fprintf(w, "\n")
}

// tableCell keeps a value from breaking a Markdown table row
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// mermaidLabel escapes characters Mermaid treats as syntax inside a quoted label
func mermaidLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;").Replace(s)
}
