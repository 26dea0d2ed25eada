// Package config loads topoedit settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/topoedit/config.toml unless --config or
// TOPOEDIT_CONFIG names another one. Every field has a default, so a missing
// default file is not an error:
//
//	[definitions]
//	path = ""              # empty: built-in Video Analyzer definitions
//
//	[rules]
//	path = ""              # empty: built-in Video Analyzer rules
//
//	[layout]
//	engine = "graphviz"    # or "layered"
//	rank_sep = 50
//	node_sep = 30
//
//	[cache]
//	backend = "file"       # file, redis or none
//	ttl = "168h"
//
//	[store]
//	backend = "file"       # file or mongo
//
//	[server]
//	addr = ":8080"
//
// TOPOEDIT_REDIS_ADDR and TOPOEDIT_MONGO_URI override the file and switch
// the respective backend on.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/topoedit/pkg/cache"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/store"
)

// Environment variables read by [Load].
const (
	EnvConfig    = "TOPOEDIT_CONFIG"
	EnvRedisAddr = "TOPOEDIT_REDIS_ADDR"
	EnvMongoURI  = "TOPOEDIT_MONGO_URI"
)

// Config is the complete settings tree.
type Config struct {
	Definitions Definitions `toml:"definitions"`
	Rules       Rules       `toml:"rules"`
	Layout      Layout      `toml:"layout"`
	Cache       Cache       `toml:"cache"`
	Store       Store       `toml:"store"`
	Server      Server      `toml:"server"`

	// Path is the file the settings came from, empty for defaults.
	Path string `toml:"-"`
}

// Definitions selects the node definitions table.
type Definitions struct {
	Path string `toml:"path"`
}

// Rules selects the structural rule table.
type Rules struct {
	Path string `toml:"path"`
}

// Layout configures node placement.
type Layout struct {
	Engine  string  `toml:"engine"`
	RankSep float64 `toml:"rank_sep"`
	NodeSep float64 `toml:"node_sep"`
}

// Cache configures the layout and render cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Prefix        string   `toml:"prefix"`
}

// Store configures topology persistence.
type Store struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Server configures `topoedit serve`.
type Server struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Layout: Layout{
			Engine:  "graphviz",
			RankSep: layout.DefaultRankSep,
			NodeSep: layout.DefaultNodeSep,
		},
		Cache: Cache{
			Backend: cache.BackendFile,
			TTL:     Duration{7 * 24 * time.Hour},
			Prefix:  "topoedit:",
		},
		Store: Store{
			Backend:         store.BackendFile,
			MongoDatabase:   store.DefaultMongoDatabase,
			MongoCollection: store.DefaultMongoCollection,
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			MaxBodyBytes:    4 << 20,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/topoedit/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "topoedit", "config.toml"), nil
}

// Load reads settings on top of the defaults. An empty path means
// TOPOEDIT_CONFIG, then DefaultPath; only an explicitly named file must
// exist. Unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		}
	}
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			slices.Sort(keys)
			return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		cfg.Path = path
	case os.IsNotExist(err) && !explicit:
	case os.IsNotExist(err):
		return Config{}, errors.Wrap(errors.ErrCodeNotFound, err, "config %s", path)
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Cache.Backend = cache.BackendRedis
		c.Cache.RedisAddr = addr
	}
	if uri := os.Getenv(EnvMongoURI); uri != "" {
		c.Store.Backend = store.BackendMongo
		c.Store.MongoURI = uri
	}
}

// Validate checks enumerations and cross-field requirements.
func (c Config) Validate() error {
	switch c.Layout.Engine {
	case "graphviz", "layered":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "layout.engine: unknown engine %q", c.Layout.Engine)
	}
	if c.Layout.RankSep < 0 || c.Layout.NodeSep < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout: separations must not be negative")
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend: unknown backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case store.BackendFile:
	case store.BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "server.addr must not be empty")
	}
	return nil
}

// CacheOptions returns the options for cache.Open.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		Prefix:        c.Cache.Prefix,
	}
}

// StoreOptions returns the options for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Backend:         c.Store.Backend,
		Dir:             c.Store.Dir,
		MongoURI:        c.Store.MongoURI,
		MongoDatabase:   c.Store.MongoDatabase,
		MongoCollection: c.Store.MongoCollection,
	}
}
