package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/mcp"
	"github.com/zheng/ctb/internal/watcher"
	"github.com/zheng/ctb/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string
	var watch bool
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web browser for a call tree trace",
		Long: `Load the trace file and serve the HTML browser and the JSON API.

With --watch the trace file is reloaded when it changes on disk; requests
in flight keep the graph they started with.

Examples:
  ctb serve -f call_tree.txt
  ctb serve -f call_tree.txt --addr :8080 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if flags.Changed("watch") {
				cfg.Server.Watch = watch
			}
			if flags.Changed("debounce") {
				cfg.Server.Debounce = debounce
			}

			store, err := loadStore()
			if err != nil {
				return err
			}
			handle := graph.NewHandle(store)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.NewServer(handle, cfg.Server).Run(gctx)
			})
			if cfg.Server.Watch {
				w, err := watcher.New(cfg.Trace.File, handle,
					watcher.WithDebounceDelay(cfg.Server.Debounce),
					watcher.WithLoadOptions(loadOptions()),
					watcher.WithOnError(func(err error) {
						slog.Error("trace.reload", "file", cfg.Trace.File, "err", err)
					}),
				)
				if err != nil {
					return err
				}
				g.Go(func() error {
					return w.Run(gctx)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", cfg.Server.Addr, "listen address")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the trace file when it changes")
	cmd.Flags().DurationVar(&debounce, "debounce", cfg.Server.Debounce, "delay before reloading after a change")
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP (Model Context Protocol) server on stdio",
		Long: `Start an MCP server so AI assistants can query the call graph directly.

Tools:
  - list_classes, get_class: browse classes and their methods
  - list_entrypoints: VM entry points in trace order
  - get_method: forward and reverse edges of a method
  - call_tree: recursive upstream/downstream expansion
  - search_methods: substring search over Class.signature
  - graph_stats: node and edge counts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcp.NewServer(graph.NewHandle(store)).Run(ctx)
		},
	}

	return cmd
}
