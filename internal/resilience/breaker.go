package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// BreakerConfig configures a named circuit breaker, per spec §4.1.
type BreakerConfig struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
	MonitorWindow    time.Duration
}

// DefaultBreakerConfig matches spec §4.1's defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		MonitorWindow:    300 * time.Second,
	}
}

// BreakerRegistry hands out one *Breaker per named dependency, so
// "kanban:planka" and "ai:anthropic" each get independent state.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	config   BreakerConfig
}

func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultBreakerConfig()
	}
	return &BreakerRegistry{breakers: make(map[string]*Breaker), config: cfg}
}

func (r *BreakerRegistry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.config)
	r.breakers[name] = b
	return b
}

// Breaker wraps a gobreaker.CircuitBreaker, translating its open-state
// rejection into a tagged MarcusError carrying the next retry time.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
	cfg  BreakerConfig

	mu             sync.RWMutex
	nextAttemptAt  time.Time
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	b := &Breaker{name: name, cfg: cfg}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.SuccessThreshold,
		Interval:    cfg.MonitorWindow,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				b.mu.Lock()
				b.nextAttemptAt = time.Now().Add(cfg.Timeout)
				b.mu.Unlock()
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// State reports the current gobreaker state name (closed/open/half-open).
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Do executes fn through the circuit breaker. If the circuit is open,
// fn is never invoked and an IntegrationError with
// operation="circuit_breaker_open" is returned instead.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		b.mu.RLock()
		next := b.nextAttemptAt
		b.mu.RUnlock()
		mctx := merrors.Context{
			Operation:       "circuit_breaker_open",
			IntegrationName: b.name,
		}
		return merrors.New(merrors.VariantExternalService, "circuit breaker "+b.name+" is open", mctx, err).
			WithRemediation(merrors.Remediation{
				Immediate: "wait for circuit breaker to close",
				Fallback:  "use cached data or alternative service",
				LongTerm:  "fix underlying service issues",
				RetryStrategy: "next attempt at " + next.Format(time.RFC3339),
			})
	}
	return err
}
