package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/topoedit/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate points every lookup at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvMongoURI, "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty for defaults", cfg.Path)
	}
	want := Default()
	if cfg.Layout != want.Layout || cfg.Server.Addr != ":8080" || cfg.Cache.TTL.Duration != 7*24*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Store.Backend != "file" || cfg.Cache.Backend != "file" {
		t.Errorf("backends = %q, %q", cfg.Store.Backend, cfg.Cache.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[layout]
engine = "layered"
rank_sep = 80

[cache]
backend = "none"
ttl = "1h"

[server]
addr = "127.0.0.1:9000"
read_timeout = "5s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.Layout.Engine != "layered" || cfg.Layout.RankSep != 80 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.NodeSep != Default().Layout.NodeSep {
		t.Errorf("unset node_sep lost its default: %v", cfg.Layout.NodeSep)
	}
	if cfg.Cache.Backend != "none" || cfg.Cache.TTL.Duration != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != Default().Server.WriteTimeout {
		t.Errorf("unset write_timeout lost its default")
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[server]\naddr = \":7000\"\n")
	t.Setenv(EnvConfig, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvRedisAddr, "localhost:6379")
	t.Setenv(EnvMongoURI, "mongodb://localhost:27017")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Store.Backend != "mongo" || cfg.Store.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if got := cfg.CacheOptions(); got.Prefix != "topoedit:" || got.RedisAddr != "localhost:6379" {
		t.Errorf("CacheOptions = %+v", got)
	}
	if got := cfg.StoreOptions(); got.MongoDatabase != "topoedit" {
		t.Errorf("StoreOptions = %+v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		body string
		code errors.Code
		msg  string
	}{
		{"syntax", "[layout", errors.ErrCodeInvalidFormat, ""},
		{"bad duration", "[cache]\nttl = \"soon\"", errors.ErrCodeInvalidFormat, ""},
		{"unknown key", "[layout]\nengin = \"dot\"", errors.ErrCodeInvalidInput, "layout.engin"},
		{"unknown engine", "[layout]\nengine = \"dot\"", errors.ErrCodeInvalidInput, "layout.engine"},
		{"redis without addr", "[cache]\nbackend = \"redis\"", errors.ErrCodeInvalidInput, "redis_addr"},
		{"mongo without uri", "[store]\nbackend = \"mongo\"", errors.ErrCodeInvalidInput, "mongo_uri"},
		{"unknown store", "[store]\nbackend = \"s3\"", errors.ErrCodeInvalidInput, "store.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("err = %v, want mention of %q", err, tt.msg)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("explicit missing file: err = %v", err)
	}
}
