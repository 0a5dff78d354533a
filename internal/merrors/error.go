package merrors

import (
	"fmt"

	"github.com/google/uuid"
)

// MarcusError is the single concrete error type for the taxonomy in
// taxonomy.go. Category, severity, and retryable are plain fields
// rather than subclass defaults, per spec §9's redesign note.
type MarcusError struct {
	Message     string
	Code        string
	Variant     Variant
	Category    Category
	Severity    Severity
	Retryable   bool
	Context     Context
	Remediation Remediation
	Cause       error
}

// New builds a MarcusError for the given variant, filling category,
// severity, and retryable from the taxonomy table and minting fresh
// operation/correlation ids if the caller didn't supply any.
func New(variant Variant, message string, ctx Context, cause error) *MarcusError {
	d, ok := defaultsByVariant[variant]
	if !ok {
		d = variantDefaults{CategorySystem, SeverityCritical, false}
	}
	if ctx.OperationID == "" {
		ctx.OperationID = uuid.New().String()
	}
	if ctx.CorrelationID == "" {
		ctx.CorrelationID = uuid.New().String()
	}
	return &MarcusError{
		Message:   message,
		Code:      string(variant),
		Variant:   variant,
		Category:  d.category,
		Severity:  d.severity,
		Retryable: d.retryable,
		Context:   ctx,
		Cause:     cause,
	}
}

func (e *MarcusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As interop.
func (e *MarcusError) Unwrap() error {
	return e.Cause
}

// WithRemediation attaches remediation guidance and returns the error
// for chaining at the construction site.
func (e *MarcusError) WithRemediation(r Remediation) *MarcusError {
	e.Remediation = r
	return e
}

// Enrich merges additional scope metadata into the error's context
// without discarding what is already set, used when an error escapes
// a nested scoped operation and picks up the outer operation's frame.
func (e *MarcusError) Enrich(operation string, agentID, taskID, integration string) {
	if e.Context.Operation == "" {
		e.Context.Operation = operation
	}
	if e.Context.AgentID == "" {
		e.Context.AgentID = agentID
	}
	if e.Context.TaskID == "" {
		e.Context.TaskID = taskID
	}
	if e.Context.IntegrationName == "" {
		e.Context.IntegrationName = integration
	}
}

// As reports whether err is a *MarcusError, unwrapping standard error
// chains to find one.
func As(err error) (*MarcusError, bool) {
	for err != nil {
		if me, ok := err.(*MarcusError); ok {
			return me, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Variant-specific constructors. Each stamps the operation onto the
// context when the caller hasn't already.

func NewNetworkTimeoutError(operation string, ctx Context, cause error) *MarcusError {
	ctx.Operation = orDefault(ctx.Operation, operation)
	return New(VariantNetworkTimeout, fmt.Sprintf("network timeout during %s", operation), ctx, cause)
}

func NewServiceUnavailableError(service string, ctx Context, cause error) *MarcusError {
	ctx.IntegrationName = orDefault(ctx.IntegrationName, service)
	return New(VariantServiceUnavailable, fmt.Sprintf("%s unavailable", service), ctx, cause)
}

func NewRateLimitError(service string, ctx Context, cause error) *MarcusError {
	ctx.IntegrationName = orDefault(ctx.IntegrationName, service)
	return New(VariantRateLimit, fmt.Sprintf("%s rate limited", service), ctx, cause)
}

func NewMissingCredentialsError(what string, ctx Context) *MarcusError {
	return New(VariantMissingCredentials, fmt.Sprintf("missing credentials: %s", what), ctx, nil)
}

func NewInvalidConfigurationError(what string, ctx Context) *MarcusError {
	return New(VariantInvalidConfiguration, fmt.Sprintf("invalid configuration: %s", what), ctx, nil)
}

func NewMissingDependencyError(what string, ctx Context) *MarcusError {
	return New(VariantMissingDependency, fmt.Sprintf("missing dependency: %s", what), ctx, nil)
}

func NewTaskAssignmentError(message string, ctx Context) *MarcusError {
	return New(VariantTaskAssignment, message, ctx, nil)
}

func NewWorkflowViolationError(message string, ctx Context) *MarcusError {
	return New(VariantWorkflowViolation, message, ctx, nil)
}

func NewValidationError(message string, ctx Context) *MarcusError {
	return New(VariantValidation, message, ctx, nil)
}

func NewStateConflictError(message string, ctx Context) *MarcusError {
	return New(VariantStateConflict, message, ctx, nil)
}

func NewKanbanIntegrationError(provider, operation string, ctx Context, cause error) *MarcusError {
	ctx.IntegrationName = orDefault(ctx.IntegrationName, provider)
	ctx.Operation = orDefault(ctx.Operation, operation)
	return New(VariantKanbanIntegration, fmt.Sprintf("kanban integration error (%s): %s", provider, operation), ctx, cause)
}

func NewAIProviderError(provider, operation string, ctx Context, cause error) *MarcusError {
	ctx.IntegrationName = orDefault(ctx.IntegrationName, provider)
	ctx.Operation = orDefault(ctx.Operation, operation)
	return New(VariantAIProvider, fmt.Sprintf("AI provider error (%s): %s", provider, operation), ctx, cause)
}

func NewAuthenticationError(integration string, ctx Context, cause error) *MarcusError {
	ctx.IntegrationName = orDefault(ctx.IntegrationName, integration)
	return New(VariantAuthentication, fmt.Sprintf("authentication failed for %s", integration), ctx, cause)
}

// IntegrationError is the generic catch-all used when wrapping an
// escaped non-Marcus error, and when retries/fallbacks are exhausted.
func NewIntegrationError(operation string, ctx Context, cause error) *MarcusError {
	ctx.Operation = orDefault(ctx.Operation, operation)
	return New(VariantExternalService, fmt.Sprintf("integration error during %s", operation), ctx, cause)
}

func NewAuthorizationError(message string, ctx Context) *MarcusError {
	return New(VariantAuthorization, message, ctx, nil)
}

func NewCorruptedStateError(message string, ctx Context, cause error) *MarcusError {
	return New(VariantCorruptedState, message, ctx, cause)
}

func NewDatabaseError(message string, ctx Context, cause error) *MarcusError {
	return New(VariantDatabase, message, ctx, cause)
}

func orDefault(v, d string) string {
	if v != "" {
		return v
	}
	return d
}
