// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; the defaults do
// nothing. A binary that wants Prometheus counters or spans registers its
// own implementations once at startup:
//
//	func main() {
//	    observability.SetConvertHooks(&metrics{})
//	    observability.SetCacheHooks(&metrics{})
//	    // ... run application
//	}
//
// Emitting side:
//
//	start := time.Now()
//	g, meta, err := flatten(...)
//	observability.Convert().OnFlatten(ctx, doc.Name, g.NodeCount(), g.EdgeCount(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Cache key types passed to [CacheHooks].
const (
	KeyLayout = "layout"
	KeyRender = "render"
)

// =============================================================================
// Hook interfaces
// =============================================================================

// ConvertHooks receives events from topology conversion.
type ConvertHooks interface {
	// OnFlatten fires after a document was turned into a graph. On error
	// the counts are zero.
	OnFlatten(ctx context.Context, topology string, nodes, edges int, duration time.Duration, err error)

	// OnCollect fires after a graph was turned back into a document.
	OnCollect(topology string, nodes int)
}

// ValidateHooks receives events from the validator.
type ValidateHooks interface {
	OnValidate(nodes, findings int, duration time.Duration)
}

// CacheHooks receives events from the layout and render caches.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives events from the HTTP API. Route is the matched
// pattern, e.g. /v1/topologies/{name}, or "" when nothing matched.
type ServerHooks interface {
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

type NoopConvertHooks struct{}

func (NoopConvertHooks) OnFlatten(context.Context, string, int, int, time.Duration, error) {}
func (NoopConvertHooks) OnCollect(string, int)                                             {}

type NoopValidateHooks struct{}

func (NoopValidateHooks) OnValidate(int, int, time.Duration) {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	hooksMu       sync.RWMutex
	convertHooks  ConvertHooks  = NoopConvertHooks{}
	validateHooks ValidateHooks = NoopValidateHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	serverHooks   ServerHooks   = NoopServerHooks{}
)

// SetConvertHooks registers conversion hooks. Nil is ignored.
func SetConvertHooks(h ConvertHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		convertHooks = h
	}
}

// SetValidateHooks registers validation hooks. Nil is ignored.
func SetValidateHooks(h ValidateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		validateHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers HTTP server hooks. Nil is ignored.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

func Convert() ConvertHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return convertHooks
}

func Validate() ValidateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return validateHooks
}

func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores the no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	convertHooks = NoopConvertHooks{}
	validateHooks = NoopValidateHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
