package render

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoedit/pkg/cache"
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/observability"
)

// Renderer renders graphs through a cache. The zero value renders without
// caching.
type Renderer struct {
	Cache  cache.Cache
	Keyer  cache.Keyer   // defaults to cache.NewDefaultKeyer()
	TTL    time.Duration // zero keeps entries until evicted
	Logger *log.Logger   // defaults to log.Default()
}

// Render draws g in the given format. Cache failures are logged and
// otherwise ignored.
func (r Renderer) Render(ctx context.Context, g *graph.Graph, format Format, opts Options) ([]byte, error) {
	dot := ToDOT(g, opts)
	if format == FormatDOT || r.Cache == nil {
		return Render(ctx, dot, format, opts.Pinned)
	}

	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	keyer := r.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.RenderKey(cache.Hash([]byte(dot)), cache.RenderKeyOpts{
		Format:   string(format),
		Detailed: opts.Detailed,
	})

	hooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err != nil {
		logger.Warn("render cache read failed", "err", err)
	} else if hit {
		logger.Debug("render cache hit", "format", format)
		hooks.OnCacheHit(ctx, observability.KeyRender)
		return data, nil
	}
	hooks.OnCacheMiss(ctx, observability.KeyRender)

	data, err := Render(ctx, dot, format, opts.Pinned)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		logger.Warn("render cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, observability.KeyRender, len(data))
	}
	return data, nil
}
