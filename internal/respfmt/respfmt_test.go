package respfmt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

func sampleError() *merrors.MarcusError {
	e := merrors.NewKanbanIntegrationError("planka", "fetch_tasks",
		merrors.Context{AgentID: "agent-1", TaskID: "task-9"}, errors.New("connection reset"))
	e.WithRemediation(merrors.Remediation{
		Immediate:     "retry the request",
		Fallback:      "use cached board state",
		RetryStrategy: "3 attempts with backoff",
	})
	return e
}

func TestToolCall_ShapesSuccessFalse(t *testing.T) {
	out := ToolCall(sampleError())
	assert.False(t, out.Success)
	assert.Equal(t, "KANBAN_INTEGRATION", out.Error.Code)
	assert.Equal(t, "agent-1", out.Error.Context["agent_id"])
	assert.Equal(t, "retry the request", out.Error.Remediation["immediate"])
}

func TestHTTPStatusFor_MapsEachCategory(t *testing.T) {
	assert.Equal(t, 403, HTTPStatusFor(merrors.CategorySecurity))
	assert.Equal(t, 400, HTTPStatusFor(merrors.CategoryConfiguration))
	assert.Equal(t, 422, HTTPStatusFor(merrors.CategoryBusinessLogic))
	assert.Equal(t, 503, HTTPStatusFor(merrors.CategoryTransient))
	assert.Equal(t, 502, HTTPStatusFor(merrors.CategoryIntegration))
	assert.Equal(t, 500, HTTPStatusFor(merrors.CategorySystem))
}

func TestHTTP_PopulatesSourceAndMeta(t *testing.T) {
	out := HTTP(sampleError())
	assert.Equal(t, 502, out.Error.Status)
	assert.Equal(t, "agent-1", out.Error.Source.Agent)
	assert.Equal(t, "task-9", out.Error.Source.Task)
	assert.Contains(t, out.Error.Meta.Suggestions, "retry the request")
}

func TestUser_IncludesWhatToDoAndRetry(t *testing.T) {
	msg := User(sampleError())
	assert.Contains(t, msg, "What to do: retry the request")
	assert.Contains(t, msg, "Alternative: use cached board state")
	assert.Contains(t, msg, "Retry: 3 attempts with backoff")
}

func TestSanitize_RedactsSensitiveKeysRecursively(t *testing.T) {
	in := map[string]any{
		"api_key": "sk-live-123",
		"nested": map[string]any{
			"auth_token": "abc",
			"safe":       "value",
		},
		"list": []any{
			map[string]any{"password": "hunter2"},
		},
	}

	out := Sanitize(in).(map[string]any)
	assert.Equal(t, redacted, out["api_key"])
	nested := out["nested"].(map[string]any)
	assert.Equal(t, redacted, nested["auth_token"])
	assert.Equal(t, "value", nested["safe"])
	list := out["list"].([]any)
	assert.Equal(t, redacted, list[0].(map[string]any)["password"])
}

func TestTruncate_AppendsEllipsisPastLimit(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel…", Truncate("hello world", 4))
}

func TestBatch_CapsAtTenAndFlagsOverflow(t *testing.T) {
	var errs []*merrors.MarcusError
	for i := 0; i < 14; i++ {
		errs = append(errs, merrors.NewValidationError("bad input", merrors.Context{}))
	}

	b := Batch(map[string]any{"total": 14}, errs)
	assert.Len(t, b.Errors, 10)
	assert.True(t, b.HasMoreErrors)
}
