package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/marcus-mcp/marcus/internal/monitor"
)

// Router fans a single monitor.Notifier call out to every configured
// channel, logging and collecting per-channel failures instead of
// aborting on the first one — the same tolerant fan-out the teacher's
// Manager uses across toast/terminal/banner.
type Router struct {
	channels []monitor.Notifier
	logger   *log.Logger
}

func NewRouter(logger *log.Logger, channels ...monitor.Notifier) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{channels: channels, logger: logger}
}

var _ monitor.Notifier = (*Router)(nil)

func (r *Router) NotifyPattern(ctx context.Context, p *monitor.ErrorPattern) error {
	var errs []error
	for _, ch := range r.channels {
		if err := ch.NotifyPattern(ctx, p); err != nil {
			r.logger.Printf("notify: pattern %s: %v", p.PatternID, err)
			errs = append(errs, err)
		}
	}
	return joinErrs(errs)
}

func (r *Router) NotifyHealthDegraded(ctx context.Context, report monitor.HealthReport) error {
	var errs []error
	for _, ch := range r.channels {
		if err := ch.NotifyHealthDegraded(ctx, report); err != nil {
			r.logger.Printf("notify: health degraded: %v", err)
			errs = append(errs, err)
		}
	}
	return joinErrs(errs)
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("notify: %d channel(s) failed: %v", len(errs), errs)
}
