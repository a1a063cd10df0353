package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/impact"
)

func classesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List all classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			classes := store.ListClasses()
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, classes)
			}
			for _, cls := range classes {
				fmt.Fprintln(out, cls)
			}
			fmt.Fprintf(out, "\n%d classes\n", len(classes))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func classCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "class <class-name>",
		Short: "Show the methods of a class with IN/OUT edge counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			info, err := store.GetClass(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, info)
			}
			fmt.Fprintf(out, "class %s\n\n", info.Name)
			for _, m := range info.Methods {
				fmt.Fprintf(out, "IN %-5d OUT %-5d %s\n", m.ReverseCount, m.ForwardCount, m.Signature)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func entrypointsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "entrypoints",
		Short: "List VM entry points in order of appearance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			entries := store.ListEntrypoints()
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, entries)
			}
			for _, ref := range entries {
				fmt.Fprintln(out, ref)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func methodCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "method <class-name> <signature>",
		Short: "Show the calls made by and into a method",
		Long: `Show the forward edges (Calling) and reverse edges (Called by) of a method.

Example:
  ctb method -f call_tree.txt java.lang.Thread 'run()'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			info, err := store.GetMethod(args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, info)
			}
			fmt.Fprintf(out, "method %s.%s\n\nCalling:\n", info.Class, info.Signature)
			printEdges(cmd, info.Forward)
			fmt.Fprintf(out, "\nCalled by:\n")
			printEdges(cmd, info.Reverse)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func printEdges(cmd *cobra.Command, edges []graph.EdgeInfo) {
	out := cmd.OutOrStdout()
	if len(edges) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for _, e := range edges {
		fmt.Fprintf(out, "  %s %s\n", e.Type, e.Ref())
	}
}

func upstreamCmd() *cobra.Command {
	return treeCmd(graph.Upstream, "upstream", "Show the callers of a method recursively")
}

func downstreamCmd() *cobra.Command {
	return treeCmd(graph.Downstream, "downstream", "Show the callees of a method recursively")
}

func treeCmd(dir graph.Direction, use, short string) *cobra.Command {
	var depth int
	var format string

	cmd := &cobra.Command{
		Use:   use + " <class-name> <signature>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if depth < 0 {
				return fmt.Errorf("depth must be >= 0")
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			root := graph.MethodRef{Class: args[0], Signature: args[1]}
			tree, err := store.CallTree(root, dir, depth)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, tree)
			}
			printCallTree(out, root, tree)
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "recursion depth (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func searchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Find methods by substring of Class.signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			results := store.Search(args[0], limit)
			out := cmd.OutOrStdout()
			if format == "json" {
				if results == nil {
					results = []graph.MethodRef{}
				}
				return outputJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "no methods match %q\n", args[0])
				return nil
			}
			for _, ref := range results {
				fmt.Fprintf(out, "%-50s %s\n", display.ShortRef(ref), ref)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of results (0 = all)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func statsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			stats := store.Stats()
			out := cmd.OutOrStdout()
			if format == "json" {
				return outputJSON(out, stats)
			}
			fmt.Fprintf(out, "file:        %s\n", stats.Source.Path)
			fmt.Fprintf(out, "lines:       %d (%d skipped)\n", stats.Source.Lines, stats.Source.Malformed)
			fmt.Fprintf(out, "classes:     %d\n", stats.Classes)
			fmt.Fprintf(out, "methods:     %d\n", stats.Methods)
			fmt.Fprintf(out, "edges:       %d\n", stats.Edges)
			fmt.Fprintf(out, "entrypoints: %d\n", stats.Entrypoints)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json)")
	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth, downstreamDepth int
	var format string

	cmd := &cobra.Command{
		Use:   "impact <class-name> <signature>",
		Short: "Show every method affected by a change to a method",
		Long: `List the direct and indirect callers and callees of a method, and the
VM entry points that reach it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "markdown":
			default:
				return fmt.Errorf("unknown format %q (text/json/markdown)", format)
			}
			store, err := loadStore()
			if err != nil {
				return err
			}

			target := graph.MethodRef{Class: args[0], Signature: args[1]}
			report, err := impact.NewAnalyzer(store).Analyze(target, upstreamDepth, downstreamDepth)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return outputJSON(out, report)
			case "markdown":
				fmt.Fprint(out, report.FormatMarkdown())
			default:
				fmt.Fprint(out, report.FormatTree())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&upstreamDepth, "upstream-depth", "u", 0, "caller depth (0 = unlimited)")
	cmd.Flags().IntVarP(&downstreamDepth, "downstream-depth", "d", 1, "callee depth (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text/json/markdown)")
	return cmd
}
