package resilience

import (
	"github.com/marcus-mcp/marcus/internal/merrors"
)

// Aggregator collects successes and errors from a batch operation and
// produces a summary, per spec §4.1.
type Aggregator struct {
	Operation  string
	errors     []*merrors.MarcusError
	successes  int
	total      int
}

func NewAggregator(operation string) *Aggregator {
	return &Aggregator{Operation: operation}
}

func (a *Aggregator) AddSuccess() {
	a.successes++
	a.total++
}

// AddError records a failure, enhancing it with batch item context.
func (a *Aggregator) AddError(err error, itemContext map[string]any) {
	a.total++
	me, ok := merrors.As(err)
	if !ok {
		mctx := merrors.Context{Operation: a.Operation, Custom: map[string]any{
			"batch_operation": a.Operation,
			"item_context":    itemContext,
		}}
		me = merrors.NewIntegrationError(a.Operation, mctx, err)
	} else {
		if me.Context.Custom == nil {
			me.Context.Custom = map[string]any{}
		}
		me.Context.Custom["batch_operation"] = a.Operation
		me.Context.Custom["item_context"] = itemContext
	}
	a.errors = append(a.errors, me)
}

// Summary is the batch result shape returned by Summarize.
type Summary struct {
	Operation    string                       `json:"operation"`
	Total        int                          `json:"total_operations"`
	Successes    int                          `json:"successes"`
	Errors       int                          `json:"errors"`
	SuccessRate  float64                      `json:"success_rate"`
	ByErrorType  map[string][]map[string]any  `json:"error_summary"`
}

func (a *Aggregator) Summarize() Summary {
	byType := make(map[string][]map[string]any)
	for _, e := range a.errors {
		byType[string(e.Variant)] = append(byType[string(e.Variant)], map[string]any{
			"message":        e.Message,
			"correlation_id": e.Context.CorrelationID,
			"item_context":   e.Context.Custom["item_context"],
		})
	}
	rate := 0.0
	if a.total > 0 {
		rate = float64(a.successes) / float64(a.total)
	}
	return Summary{
		Operation:   a.Operation,
		Total:       a.total,
		Successes:   a.successes,
		Errors:      len(a.errors),
		SuccessRate: rate,
		ByErrorType: byType,
	}
}

func (a *Aggregator) HasErrors() bool { return len(a.errors) > 0 }

func (a *Aggregator) CriticalErrors() []*merrors.MarcusError {
	var crit []*merrors.MarcusError
	for _, e := range a.errors {
		if e.Severity == merrors.SeverityCritical {
			crit = append(crit, e)
		}
	}
	return crit
}

// RaiseIfCritical returns the first critical error annotated with
// batch metadata, or nil if none occurred.
func (a *Aggregator) RaiseIfCritical() error {
	crit := a.CriticalErrors()
	if len(crit) == 0 {
		return nil
	}
	first := crit[0]
	if first.Context.Custom == nil {
		first.Context.Custom = map[string]any{}
	}
	first.Context.Custom["critical_errors_in_batch"] = len(crit)
	first.Context.Custom["total_errors_in_batch"] = len(a.errors)
	return first
}
