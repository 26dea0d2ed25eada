package layout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoedit/pkg/cache"
	"github.com/matzehuels/topoedit/pkg/observability"
)

// Cached memoizes an engine. Results are keyed by the engine name and a
// hash of the box sizes and links, so any change to the input misses.
//
// Box ids are left out of the key: links are hashed as index pairs into the
// box slice and results are stored in box order, then mapped back onto the
// caller's ids. Flattening the same document twice therefore hits even
// though every node gets a fresh id.
type Cached struct {
	Engine Engine
	Cache  cache.Cache
	Keyer  cache.Keyer   // defaults to cache.NewDefaultKeyer()
	TTL    time.Duration // zero keeps entries until evicted
	Logger *log.Logger   // defaults to log.Default()
}

// cacheInput is the id-free form of an engine input. Links with an
// endpoint outside the box slice use index -1.
type cacheInput struct {
	Sizes [][2]float64 `json:"sizes"`
	Links [][2]int     `json:"links"`
}

func indexInput(boxes []Box, links []Link) cacheInput {
	index := make(map[string]int, len(boxes))
	in := cacheInput{Sizes: make([][2]float64, len(boxes)), Links: make([][2]int, len(links))}
	for i, b := range boxes {
		index[b.ID] = i
		in.Sizes[i] = [2]float64{b.Width, b.Height}
	}
	lookup := func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		return -1
	}
	for i, l := range links {
		in.Links[i] = [2]int{lookup(l.Source), lookup(l.Target)}
	}
	return in
}

func (c Cached) Name() string { return EngineName(c.Engine) }

func (c Cached) Layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	keyer := c.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}

	input, err := cache.HashJSON(indexInput(boxes, links))
	if err != nil {
		return nil, err
	}
	key := keyer.LayoutKey(input, keyOpts(c.Engine))

	hooks := observability.Cache()
	if data, hit, err := c.Cache.Get(ctx, key); err != nil {
		logger.Warn("layout cache read failed", "err", err)
	} else if hit {
		var points []Point
		if err := json.Unmarshal(data, &points); err == nil && len(points) == len(boxes) {
			out := make(map[string]Point, len(boxes))
			for i, b := range boxes {
				out[b.ID] = points[i]
			}
			logger.Debug("layout cache hit", "nodes", len(boxes))
			hooks.OnCacheHit(ctx, observability.KeyLayout)
			return out, nil
		}
	}
	hooks.OnCacheMiss(ctx, observability.KeyLayout)

	var out map[string]Point
	var degraded bool
	if fb, ok := c.Engine.(WithFallback); ok {
		out, degraded, err = fb.layout(ctx, boxes, links)
	} else {
		out, err = c.Engine.Layout(ctx, boxes, links)
	}
	if err != nil {
		return nil, err
	}
	if degraded {
		// the key names the primary engine
		return out, nil
	}

	points := make([]Point, len(boxes))
	for i, b := range boxes {
		p, ok := out[b.ID]
		if !ok {
			return out, nil
		}
		points[i] = p
	}
	if data, err := json.Marshal(points); err == nil {
		if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
			logger.Warn("layout cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, observability.KeyLayout, len(data))
		}
	}
	return out, nil
}

// WithFallback runs primary and switches to fallback when it fails.
type WithFallback struct {
	Primary  Engine
	Fallback Engine
	Logger   *log.Logger
}

func (f WithFallback) Name() string { return EngineName(f.Primary) }

func (f WithFallback) Layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, error) {
	out, _, err := f.layout(ctx, boxes, links)
	return out, err
}

// layout reports whether the fallback produced the result.
func (f WithFallback) layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, bool, error) {
	out, err := f.Primary.Layout(ctx, boxes, links)
	if err == nil || ctx.Err() != nil {
		return out, false, err
	}
	logger := f.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn("layout engine failed, using fallback",
		"engine", EngineName(f.Primary), "fallback", EngineName(f.Fallback), "err", err)
	out, err = f.Fallback.Layout(ctx, boxes, links)
	return out, true, err
}

// New returns the engine for a name from configuration: "graphviz" (with
// the layered engine as fallback) or "layered".
func New(name string, rankSep, nodeSep float64, logger *log.Logger) (Engine, error) {
	switch name {
	case "", "graphviz":
		return WithFallback{
			Primary:  Graphviz{RankSep: rankSep, NodeSep: nodeSep},
			Fallback: Layered{RankSep: rankSep, NodeSep: nodeSep},
			Logger:   logger,
		}, nil
	case "layered":
		return Layered{RankSep: rankSep, NodeSep: nodeSep}, nil
	default:
		return nil, errUnknownEngine(name)
	}
}

func keyOpts(e Engine) cache.LayoutKeyOpts {
	opts := cache.LayoutKeyOpts{Engine: EngineName(e)}
	switch v := e.(type) {
	case Graphviz:
		opts.RankSep, opts.NodeSep = v.RankSep, v.NodeSep
	case Layered:
		opts.RankSep, opts.NodeSep = v.RankSep, v.NodeSep
	case WithFallback:
		return keyOpts(v.Primary)
	}
	return opts
}
