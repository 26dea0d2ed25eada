package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/cache"
)

// cacheCommand manages the layout and render cache.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and diagram cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts and diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			ch, err := cache.Open(ctx, cfg.CacheOptions())
			if err != nil {
				return fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
			}
			defer c.closeCache(ch)

			var n int
			switch ch := ch.(type) {
			case *cache.FileCache:
				n, err = ch.Clear()
				if err == nil {
					defer printDetail("Directory: %s", ch.Dir())
				}
			case *cache.RedisCache:
				n, err = ch.Clear(ctx)
			default:
				printInfo("Cache is disabled")
				return nil
			}
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", n)
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			switch cfg.Cache.Backend {
			case cache.BackendRedis:
				fmt.Fprintf(cmd.OutOrStdout(), "redis://%s/%d %s*\n", cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.Prefix)
				return nil
			case cache.BackendNone:
				printInfo("Cache is disabled")
				return nil
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				if dir, err = cache.DefaultDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
