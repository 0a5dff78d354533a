package resilience

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// RetryConfig configures backoff-with-jitter retry behavior, per
// spec §4.1 "Retry policy".
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
	// RetryOn restricts retries to these categories. Empty means the
	// defaults {TRANSIENT, INTEGRATION}.
	RetryOn []merrors.Category
	// StopOn always prevents a retry when matched, regardless of RetryOn.
	StopOn []merrors.Category
}

// DefaultRetryConfig matches spec §4.1's defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		RetryOn:     []merrors.Category{merrors.CategoryTransient, merrors.CategoryIntegration},
	}
}

// Retrier executes a function under a RetryConfig.
type Retrier struct {
	Config RetryConfig
	// sleep is overridable in tests to avoid real waits.
	sleep func(time.Duration)
}

// NewRetrier builds a Retrier; a zero Config falls back to defaults.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultRetryConfig()
	}
	return &Retrier{Config: cfg, sleep: time.Sleep}
}

// Do runs fn, retrying according to the policy. On exhaustion it
// raises an IntegrationError whose Cause is the last failure and
// whose RetryStrategy remediation records attempts used.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.Config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err) {
			break
		}
		if attempt == r.Config.MaxAttempts-1 {
			break
		}

		delay := r.calculateDelay(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.sleep(delay)
	}

	mctx := merrors.Context{Operation: operation}
	return merrors.NewIntegrationError(operation, mctx, lastErr).
		WithRemediation(merrors.Remediation{
			RetryStrategy: retryStrategyNote(r.Config.MaxAttempts),
		})
}

func (r *Retrier) shouldRetry(err error) bool {
	me, ok := merrors.As(err)
	if !ok {
		// Non-Marcus errors are treated as retryable integration noise.
		return true
	}
	if !me.Retryable {
		return false
	}
	for _, c := range r.Config.StopOn {
		if me.Category == c {
			return false
		}
	}
	retryOn := r.Config.RetryOn
	if len(retryOn) == 0 {
		retryOn = DefaultRetryConfig().RetryOn
	}
	for _, c := range retryOn {
		if me.Category == c {
			return true
		}
	}
	return false
}

func (r *Retrier) calculateDelay(attempt int) time.Duration {
	if r.Config.MaxAttempts <= 1 {
		return 0
	}
	delay := float64(r.Config.BaseDelay) * pow(r.Config.Multiplier, attempt)
	if max := float64(r.Config.MaxDelay); delay > max {
		delay = max
	}
	if r.Config.Jitter {
		delay += rand.Float64() * delay * 0.1
	}
	return time.Duration(delay)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func retryStrategyNote(attempts int) string {
	return "already retried " + strconv.Itoa(attempts) + " times"
}
