package cli

import (
	"github.com/spf13/cobra"

	"docqa/internal/mcpserver"
	"docqa/internal/watcher"
)

func newServeMCPCmd(s *settings) *cobra.Command {
	var watchDir, addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose retrieve and answer as MCP tools over SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, s, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if watchDir == "" {
				watchDir = a.cfg.Watch.Dir
			}
			if addr == "" {
				addr = a.cfg.MCP.Addr
			}
			if watchDir != "" {
				w := watcher.New(watchDir, a.svc, 0, a.log)
				n, err := w.Sync(ctx)
				if err != nil {
					return err
				}
				a.log.Info("watch directory synced", "dir", watchDir, "files", n)
				go func() {
					if err := w.Watch(ctx); err != nil {
						a.log.Error("watcher stopped", "error", err)
					}
				}()
			}

			srv := mcpserver.NewServer(a.svc, a.svc.TopK(), a.log)
			return mcpserver.Serve(ctx, srv, addr, a.cfg.MCP.BaseURL, a.log)
		},
	}
	cmd.Flags().StringVar(&watchDir, "watch", "", "directory to ingest and keep in sync")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
