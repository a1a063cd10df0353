package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/ctb/internal/export"
)

func exportCmd() *cobra.Command {
	var format string
	var outputFile string
	var title string
	var depth int
	var noMermaid bool
	var noEdges bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the call graph",
		Long: `Export the call graph as JSON, a Markdown report, a SQLite database or
into a Neo4j instance.

Examples:
  ctb export -f call_tree.txt --format markdown -o calls.md
  ctb export -f call_tree.txt --format sqlite -o calls.db
  ctb export -f call_tree.txt --format neo4j`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "json", "markdown", "sqlite", "neo4j":
			default:
				return fmt.Errorf("unknown format %q (json/markdown/sqlite/neo4j)", format)
			}

			store, err := loadStore()
			if err != nil {
				return err
			}
			exporter := export.NewExporter(store)

			switch format {
			case "sqlite":
				path := outputFile
				if path == "" || path == "-" {
					path = "ctb.db"
				}
				if err := exporter.SQLite(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
				return nil
			case "neo4j":
				return exporter.Neo4j(cmd.Context(), cfg.Neo4j)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outputFile != "" && outputFile != "-" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if format == "json" {
				return exporter.JSON(w)
			}
			opts := export.DefaultExportOptions()
			opts.IncludeMermaid = !noMermaid
			opts.IncludeEdges = !noEdges
			opts.MaxDepth = depth
			if title != "" {
				opts.Title = title
			}
			return exporter.Markdown(w, opts)
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "export format (json/markdown/sqlite/neo4j)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output path (stdout by default; ctb.db for sqlite)")
	cmd.Flags().StringVar(&title, "title", "", "Markdown report title")
	cmd.Flags().IntVar(&depth, "depth", export.DefaultExportOptions().MaxDepth, "call diagram depth below each entry point")
	cmd.Flags().BoolVar(&noMermaid, "no-mermaid", false, "omit the Mermaid call diagram")
	cmd.Flags().BoolVar(&noEdges, "no-edges", false, "omit per-method edge lists")

	return cmd
}
