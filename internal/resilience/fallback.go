package resilience

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

type prioritizedFallback struct {
	priority int
	fn       func(context.Context) (any, error)
}

// Fallback runs a primary function and, on failure, tries an ordered
// list of alternatives before falling back to a cached prior result.
type Fallback struct {
	name      string
	logger    *log.Logger
	mu        sync.Mutex
	fallbacks []prioritizedFallback
	cache     map[string]any
}

func NewFallback(name string, logger *log.Logger) *Fallback {
	return &Fallback{name: name, logger: logger, cache: make(map[string]any)}
}

// Add registers a fallback function; lower priority runs first.
func (f *Fallback) Add(priority int, fn func(context.Context) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, prioritizedFallback{priority, fn})
	sort.Slice(f.fallbacks, func(i, j int) bool { return f.fallbacks[i].priority < f.fallbacks[j].priority })
}

// Execute runs primary, then fallbacks in priority order, then the
// cache entry for cacheKey, in that order, per spec §4.1.
func (f *Fallback) Execute(ctx context.Context, cacheKey string, primary func(context.Context) (any, error)) (any, error) {
	result, err := primary(ctx)
	if err == nil {
		if cacheKey != "" {
			f.mu.Lock()
			f.cache[cacheKey] = result
			f.mu.Unlock()
		}
		return result, nil
	}

	f.logger.Printf("primary failed for %s: %v", f.name, err)

	f.mu.Lock()
	fallbacks := append([]prioritizedFallback(nil), f.fallbacks...)
	f.mu.Unlock()

	for _, fb := range fallbacks {
		if r, fbErr := fb.fn(ctx); fbErr == nil {
			f.logger.Printf("fallback succeeded for %s (priority %d)", f.name, fb.priority)
			return r, nil
		}
	}

	if cacheKey != "" {
		f.mu.Lock()
		cached, ok := f.cache[cacheKey]
		f.mu.Unlock()
		if ok {
			f.logger.Printf("using cached result for %s", f.name)
			return cached, nil
		}
	}

	if me, ok := merrors.As(err); ok {
		me.Remediation.Fallback = "all fallback strategies exhausted"
		return nil, me
	}
	mctx := merrors.Context{Operation: f.name, IntegrationName: f.name}
	return nil, merrors.NewIntegrationError(f.name, mctx, err).
		WithRemediation(merrors.Remediation{
			Immediate:  "all fallback strategies failed",
			LongTerm:   "improve fallback mechanisms",
			Escalation: "contact system administrator",
			Fallback:   "all fallback strategies exhausted",
		})
}
