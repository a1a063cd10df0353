package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadOptions() graph.LoadOptions {
	return graph.LoadOptions{
		EntryLevel:  cfg.Trace.EntryLevel,
		StrictEntry: cfg.Trace.StrictEntry,
	}
}

// loadStore reads the configured trace file
func loadStore() (*graph.Store, error) {
	if err := cfg.RequireTrace(); err != nil {
		return nil, err
	}
	return graph.Load(cfg.Trace.File, loadOptions())
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (text/json)", format)
}

// printCallTree prints the call tree below root
func printCallTree(w io.Writer, root graph.MethodRef, tree []*graph.TreeNode) {
	if len(tree) == 0 {
		fmt.Fprintf(w, "%s\n└── (none)\n", display.ShortRef(root))
		return
	}
	fmt.Fprint(w, display.RenderTree(root, tree))
}
