package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr      string
		staticDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the blog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := c.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			app := pocketscience.New(cfg, pocketscience.ViewFuncs{},
				pocketscience.WithLogger(c.logger),
				pocketscience.WithStaticDir(staticDir),
			)
			defer func() {
				if err := app.Close(); err != nil {
					c.logger.Error("closing app", zap.Error(err))
				}
			}()
			return app.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (env ADDR)")
	cmd.Flags().StringVar(&staticDir, "static", "public", "Directory served under /public")
	return cmd
}
