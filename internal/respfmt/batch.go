package respfmt

import "github.com/marcus-mcp/marcus/internal/merrors"

const maxBatchErrors = 10

// BatchResult is the {summary, errors[<=10], has_more_errors} shape
// for batch-operation responses, per spec §4.3.
type BatchResult struct {
	Summary      any             `json:"summary"`
	Errors       []ToolCallError `json:"errors"`
	HasMoreErrors bool           `json:"has_more_errors"`
}

// Batch renders a summary value alongside up to the first
// maxBatchErrors rendered errors, flagging whether more were dropped.
func Batch(summary any, errs []*merrors.MarcusError) BatchResult {
	n := len(errs)
	if n > maxBatchErrors {
		n = maxBatchErrors
	}
	rendered := make([]ToolCallError, 0, n)
	for _, e := range errs[:n] {
		rendered = append(rendered, ToolCall(e))
	}
	return BatchResult{
		Summary:       summary,
		Errors:        rendered,
		HasMoreErrors: len(errs) > maxBatchErrors,
	}
}
