// Package cli implements the topoedit command-line interface.
//
// Commands read topology documents (JSON or YAML) or session files, and
// write documents, sessions, diagrams and validation reports. Data goes to
// stdout or the --output file; status lines and logs go to stderr so
// results can be piped.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/internal/config"
	"github.com/matzehuels/topoedit/pkg/buildinfo"
	"github.com/matzehuels/topoedit/pkg/cache"
	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/render"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/store"
	"github.com/matzehuels/topoedit/pkg/validate"
)

// appName is the application name used for directories and display.
const appName = "topoedit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "topoedit converts, validates and edits media pipeline topologies",
		Long: `topoedit works with Video Analyzer style pipeline topologies: documents that
list sources, processors and sinks, each wired to its upstream nodes by name.

It flattens documents into editable graphs, collects graphs back into
documents, validates pipelines against node definitions and structural rules,
renders diagrams, and serves the same operations over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/topoedit/config.toml)")

	root.AddCommand(c.flattenCommand())
	root.AddCommand(c.collectCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.defsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Dependencies
// =============================================================================

// config loads the configuration once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	c.cfg = &cfg
	return cfg, nil
}

// registry returns the configured definitions table.
func (c *CLI) registry() (*schema.Registry, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if cfg.Definitions.Path == "" {
		return schema.Default(), nil
	}
	reg, err := schema.Load(cfg.Definitions.Path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded definitions", "path", cfg.Definitions.Path, "types", reg.Len())
	return reg, nil
}

// validator returns a validator over the configured definitions and rules.
func (c *CLI) validator() (*validate.Validator, *schema.Registry, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	rules := validate.DefaultRules()
	if cfg.Rules.Path != "" {
		if rules, err = validate.LoadRules(cfg.Rules.Path); err != nil {
			return nil, nil, err
		}
		c.Logger.Debug("loaded rules", "path", cfg.Rules.Path, "rules", rules.Len())
	}
	return validate.New(reg, rules), reg, nil
}

// openCache returns the configured cache, or a null cache when disabled.
// A cache that cannot be opened is logged and replaced by the null cache.
func (c *CLI) openCache(ctx context.Context, noCache bool) cache.Cache {
	cfg, err := c.config()
	if noCache || err != nil {
		return cache.NewNullCache()
	}
	ch, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cfg.Cache.Backend, "err", err)
		return cache.NewNullCache()
	}
	return ch
}

// engine returns the configured layout engine memoized through ch.
func (c *CLI) engine(ch cache.Cache) (layout.Engine, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	e, err := layout.New(cfg.Layout.Engine, cfg.Layout.RankSep, cfg.Layout.NodeSep, c.Logger)
	if err != nil {
		return nil, err
	}
	return layout.Cached{Engine: e, Cache: ch, TTL: cfg.Cache.TTL.Duration, Logger: c.Logger}, nil
}

// renderer returns a renderer backed by ch.
func (c *CLI) renderer(ch cache.Cache) (render.Renderer, error) {
	cfg, err := c.config()
	if err != nil {
		return render.Renderer{}, err
	}
	return render.Renderer{Cache: ch, TTL: cfg.Cache.TTL.Duration, Logger: c.Logger}, nil
}

// openStore returns the configured topology store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return s, nil
}

// closeStore closes s, logging failures.
func (c *CLI) closeStore(ctx context.Context, s store.Store) {
	if err := s.Close(ctx); err != nil {
		c.Logger.Warn("close store", "err", err)
	}
}

// closeCache closes ch, logging failures.
func (c *CLI) closeCache(ch cache.Cache) {
	if err := ch.Close(); err != nil {
		c.Logger.Warn("close cache", "err", err)
	}
}
