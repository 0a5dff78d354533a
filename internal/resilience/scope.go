// Package resilience provides the cross-cutting error handling
// primitives from spec §4.1 and §9: a scoped-operation wrapper, retry
// policy, circuit breaker, fallback handler, and error aggregator.
// Each is a plain higher-order function or small struct; composition
// happens explicitly at call sites rather than through decorators.
package resilience

import (
	"context"

	"github.com/google/uuid"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// Meta carries the caller-supplied identifiers merged into the scoped
// context: agent/task/integration are all optional.
type Meta struct {
	AgentID         string
	TaskID          string
	IntegrationName string
	Custom          map[string]any
}

// Scope runs fn inside a fresh operation context stamped with a new
// operation_id and the caller's metadata. If fn returns a
// *merrors.MarcusError, its context is enriched with the surrounding
// scope. If fn returns any other error, it is wrapped as an
// IntegrationError with the scope attached — mirroring the source's
// "wrap anything that escapes" context-manager behavior.
func Scope(ctx context.Context, operation string, meta Meta, fn func(context.Context) error) error {
	mctx := merrors.Context{
		Operation:       operation,
		OperationID:     uuid.New().String(),
		CorrelationID:   uuid.New().String(),
		AgentID:         meta.AgentID,
		TaskID:          meta.TaskID,
		IntegrationName: meta.IntegrationName,
		Custom:          meta.Custom,
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}

	if me, ok := merrors.As(err); ok {
		me.Enrich(operation, meta.AgentID, meta.TaskID, meta.IntegrationName)
		return me
	}

	return merrors.NewIntegrationError(operation, mctx, err)
}
