package mcpserver

import (
	"context"
	"log"

	"github.com/marcus-mcp/marcus/internal/ai"
	"github.com/marcus-mcp/marcus/internal/assignment"
	"github.com/marcus-mcp/marcus/internal/events"
	"github.com/marcus-mcp/marcus/internal/kanban"
	"github.com/marcus-mcp/marcus/internal/lifecycle"
	"github.com/marcus-mcp/marcus/internal/reconcile"
	"github.com/marcus-mcp/marcus/internal/registry"
	"github.com/marcus-mcp/marcus/internal/resilience"
	"github.com/marcus-mcp/marcus/internal/snapshot"
)

// Dependencies bundles every core component the 11 tool handlers
// dispatch into — C4 through C9, C11, and C12 — plus the realtime
// event recorder. cmd/marcus builds exactly one of these at startup.
type Dependencies struct {
	Provider   kanban.Provider
	Engine     *assignment.Engine
	Lifecycle  *lifecycle.Manager
	Registry   *registry.Registry
	Reconciler *reconcile.Monitor
	Aggregator *snapshot.Aggregator
	AI         ai.Adapter
	AIRetrier  *resilience.Retrier
	AIBreaker  *resilience.Breaker
	Events     *events.Recorder
	Logger     *log.Logger
}

// callAI wraps a direct AI adapter call with the "ai:{provider}"
// retrier/breaker pair, matching assignment.Engine's and
// lifecycle.Manager's own callAI, per SPEC_FULL §5.
func (d *Dependencies) callAI(ctx context.Context, fn func(context.Context) error) error {
	run := fn
	if d.AIBreaker != nil {
		inner := run
		run = func(ctx context.Context) error { return d.AIBreaker.Do(ctx, inner) }
	}
	if d.AIRetrier != nil {
		return d.AIRetrier.Do(ctx, "ai_call", run)
	}
	return run(ctx)
}

func (d *Dependencies) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}
