package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/api"
)

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion, validation and store API over HTTP",
		Long: `Serve exposes flatten, collect, validate, diagram rendering and the topology
store as a JSON API under /v1, with /healthz for probes. It shuts down
gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			v, reg, err := c.validator()
			if err != nil {
				return err
			}
			ch := c.openCache(ctx, false)
			defer c.closeCache(ch)
			engine, err := c.engine(ch)
			if err != nil {
				return err
			}
			r, err := c.renderer(ch)
			if err != nil {
				return err
			}
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)

			srv := api.New(api.Options{
				Store:        st,
				Registry:     reg,
				Validator:    v,
				Engine:       engine,
				Renderer:     r,
				Logger:       c.Logger,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			})
			c.Logger.Info("serving", "store", cfg.Store.Backend, "cache", cfg.Cache.Backend, "layout", cfg.Layout.Engine)
			return srv.ListenAndServe(ctx, addr, api.Timeouts{
				Read:     cfg.Server.ReadTimeout.Duration,
				Write:    cfg.Server.WriteTimeout.Duration,
				Shutdown: cfg.Server.ShutdownTimeout.Duration,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
