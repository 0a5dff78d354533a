// Package respfmt renders merrors.MarcusError values into the six
// target shapes named in spec §4.3: MCP tool-call, HTTP/JSON, user-
// facing text, structured log record, monitor alert, and debug dump.
// Every function here is pure — no retry/breaker/notify policy lives
// in this package, only rendering.
package respfmt

import (
	"fmt"
	"strings"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// ToolCallError is the {success:false, error:{...}} shape returned by
// every MCP tool handler on failure.
type ToolCallError struct {
	Success bool           `json:"success"`
	Error   ToolCallDetail `json:"error"`
}

type ToolCallDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context"`
	Remediation map[string]any `json:"remediation,omitempty"`
}

// ToolCall renders a MarcusError in the MCP tool-call error shape.
func ToolCall(e *merrors.MarcusError) ToolCallError {
	return ToolCallError{
		Success: false,
		Error: ToolCallDetail{
			Code:        e.Code,
			Message:     e.Message,
			Type:        string(e.Variant),
			Severity:    string(e.Severity),
			Retryable:   e.Retryable,
			Context:     contextMap(e),
			Remediation: remediationMap(e.Remediation),
		},
	}
}

// HTTPError is the {error:{...}} shape for the JSON/HTTP surface.
type HTTPError struct {
	Error HTTPErrorDetail `json:"error"`
}

type HTTPErrorDetail struct {
	ID     string       `json:"id"`
	Status int          `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail"`
	Meta   HTTPErrorMeta `json:"meta"`
	Source HTTPErrorSource `json:"source"`
}

type HTTPErrorMeta struct {
	Severity    string   `json:"severity"`
	Category    string   `json:"category"`
	Retryable   bool     `json:"retryable"`
	Timestamp   string   `json:"timestamp"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type HTTPErrorSource struct {
	Operation string `json:"operation,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Task      string `json:"task,omitempty"`
}

// HTTPStatusFor maps a category to the HTTP status named in §4.3.
func HTTPStatusFor(cat merrors.Category) int {
	switch cat {
	case merrors.CategorySecurity:
		return 403
	case merrors.CategoryConfiguration:
		return 400
	case merrors.CategoryBusinessLogic:
		return 422
	case merrors.CategoryTransient:
		return 503
	case merrors.CategoryIntegration:
		return 502
	default:
		return 500
	}
}

// HTTP renders a MarcusError in the HTTP/JSON API shape.
func HTTP(e *merrors.MarcusError) HTTPError {
	return HTTPError{Error: HTTPErrorDetail{
		ID:     e.Context.CorrelationID,
		Status: HTTPStatusFor(e.Category),
		Code:   e.Code,
		Title:  string(e.Variant),
		Detail: e.Message,
		Meta: HTTPErrorMeta{
			Severity:    string(e.Severity),
			Category:    string(e.Category),
			Retryable:   e.Retryable,
			Timestamp:   e.Context.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Suggestions: suggestionsFrom(e.Remediation),
		},
		Source: HTTPErrorSource{
			Operation: e.Context.Operation,
			Agent:     e.Context.AgentID,
			Task:      e.Context.TaskID,
		},
	}}
}

// User renders a friendly multi-line message: the error, then "What
// to do", "Alternative", and "Retry" lines when remediation has them.
func User(e *merrors.MarcusError) string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Remediation.Immediate != "" {
		fmt.Fprintf(&b, "\nWhat to do: %s", e.Remediation.Immediate)
	}
	if e.Remediation.Fallback != "" {
		fmt.Fprintf(&b, "\nAlternative: %s", e.Remediation.Fallback)
	}
	if e.Retryable {
		strategy := e.Remediation.RetryStrategy
		if strategy == "" {
			strategy = "this operation can be retried"
		}
		fmt.Fprintf(&b, "\nRetry: %s", strategy)
	}
	return b.String()
}

// LogRecord is the structured flat shape emitted to the application
// log (no remediation: that's operator-facing, not log-facing).
type LogRecord struct {
	CorrelationID   string `json:"correlation_id"`
	Operation       string `json:"operation"`
	AgentID         string `json:"agent_id,omitempty"`
	TaskID          string `json:"task_id,omitempty"`
	IntegrationName string `json:"integration_name,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Severity        string `json:"severity"`
	Category        string `json:"category"`
	CauseChain      []string `json:"cause_chain,omitempty"`
}

// Log renders a MarcusError as a structured log record.
func Log(e *merrors.MarcusError) LogRecord {
	return LogRecord{
		CorrelationID:   e.Context.CorrelationID,
		Operation:       e.Context.Operation,
		AgentID:         e.Context.AgentID,
		TaskID:          e.Context.TaskID,
		IntegrationName: e.Context.IntegrationName,
		Code:            e.Code,
		Message:         e.Message,
		Severity:        string(e.Severity),
		Category:        string(e.Category),
		CauseChain:      causeChain(e),
	}
}

// MonitorAlert is the alert record shape C2 and log sinks render for
// human-scanned alert streams.
type MonitorAlert struct {
	Tags    []string `json:"tags"`
	Message string   `json:"message"`
}

// Monitor renders a MarcusError as a tagged alert line.
func Monitor(e *merrors.MarcusError) MonitorAlert {
	return MonitorAlert{
		Tags:    []string{string(e.Category), string(e.Severity), string(e.Variant)},
		Message: e.Message,
	}
}

// DebugRecord is the full dump shape used for diagnostics: everything
// Log carries plus remediation and the full cause chain with messages.
type DebugRecord struct {
	LogRecord
	Remediation map[string]any `json:"remediation,omitempty"`
	Causes      []string       `json:"causes"`
}

// Debug renders the full diagnostic record.
func Debug(e *merrors.MarcusError) DebugRecord {
	return DebugRecord{
		LogRecord:   Log(e),
		Remediation: remediationMap(e.Remediation),
		Causes:      causeChain(e),
	}
}

func causeChain(e *merrors.MarcusError) []string {
	var chain []string
	var cur error = e.Cause
	for cur != nil {
		chain = append(chain, cur.Error())
		u, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	return chain
}

func contextMap(e *merrors.MarcusError) map[string]any {
	m := map[string]any{
		"operation":      e.Context.Operation,
		"operation_id":   e.Context.OperationID,
		"correlation_id": e.Context.CorrelationID,
	}
	if e.Context.AgentID != "" {
		m["agent_id"] = e.Context.AgentID
	}
	if e.Context.TaskID != "" {
		m["task_id"] = e.Context.TaskID
	}
	if e.Context.IntegrationName != "" {
		m["integration_name"] = e.Context.IntegrationName
	}
	for k, v := range e.Context.Custom {
		m[k] = v
	}
	return Sanitize(m).(map[string]any)
}

func remediationMap(r merrors.Remediation) map[string]any {
	m := map[string]any{}
	if r.Immediate != "" {
		m["immediate"] = r.Immediate
	}
	if r.LongTerm != "" {
		m["long_term"] = r.LongTerm
	}
	if r.Fallback != "" {
		m["fallback"] = r.Fallback
	}
	if r.RetryStrategy != "" {
		m["retry_strategy"] = r.RetryStrategy
	}
	if r.Escalation != "" {
		m["escalation"] = r.Escalation
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func suggestionsFrom(r merrors.Remediation) []string {
	var out []string
	for _, s := range []string{r.Immediate, r.Fallback, r.LongTerm} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
