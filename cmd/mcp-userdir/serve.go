package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ggoodman/mcp-userdir/stdio"
	"github.com/ggoodman/mcp-userdir/userserver"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the user directory over stdio",
		Long: `Starts an MCP server over stdin/stdout. Standard output carries protocol
frames only; logs are written to standard error.

With the file backend and USERS_WATCH enabled, edits made to the users file
by other processes are announced to subscribed clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g)
		},
	}
}

func runServe(cmd *cobra.Command, g *globalOptions) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	srv := userserver.New(a.repo,
		userserver.WithImplementation(cfg.ServerName, cfg.ServerVersion),
		userserver.WithVariant(userserver.Variant(cfg.Variant)),
		userserver.WithLogger(a.logger),
	)

	opts := []stdio.Option{stdio.WithLogger(a.logger)}
	if in := cmd.InOrStdin(); in != io.Reader(os.Stdin) {
		opts = append(opts, stdio.WithReader(in))
	}
	if out := cmd.OutOrStdout(); out != io.Writer(os.Stdout) {
		opts = append(opts, stdio.WithWriter(out))
	}
	if cfg.LogWire {
		opts = append(opts, stdio.WithWireLog(cmd.ErrOrStderr()))
	}
	h := stdio.NewHandler(srv.MCP(), opts...)

	eg, egCtx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(egCtx)
	defer stop()

	eg.Go(func() error {
		// The session is over once the client goes away; stop the watcher too.
		defer stop()
		return h.Serve(runCtx)
	})

	if a.watchPath != "" && cfg.Watch {
		w := userserver.NewWatcher(a.watchPath, func(ctx context.Context) {
			srv.NotifyUsersChanged(ctx)
		}, userserver.WithWatchLogger(a.logger))
		eg.Go(func() error {
			if err := w.Run(runCtx); err != nil {
				a.logger.WarnContext(runCtx, "users file watcher disabled", slog.String("err", err.Error()))
			}
			return nil
		})
	}

	a.logger.InfoContext(ctx, "MCP Server running on stdio",
		slog.String("variant", cfg.Variant),
		slog.String("store", cfg.Store),
	)
	return eg.Wait()
}
