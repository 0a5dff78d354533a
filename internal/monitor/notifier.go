package monitor

import "context"

// NoopNotifier discards every pattern and health alert; useful for
// tests and for servers running without configured alert channels.
type NoopNotifier struct{}

func (NoopNotifier) NotifyPattern(ctx context.Context, p *ErrorPattern) error { return nil }
func (NoopNotifier) NotifyHealthDegraded(ctx context.Context, r HealthReport) error { return nil }
