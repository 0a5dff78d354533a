package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// ClaudeAdapter implements Adapter over the Anthropic Messages API.
// Every call is a single-turn completion; retry/breaker policy is the
// caller's job (C7/C8 wrap these calls the same way they wrap
// kanban.Provider), so ClaudeAdapter itself never retries.
type ClaudeAdapter struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeAdapter builds an adapter against the given API key and
// model. An empty model falls back to Claude 3.5 Sonnet.
func NewClaudeAdapter(apiKey string, model anthropic.Model) *ClaudeAdapter {
	if model == "" {
		model = anthropic.ModelClaude3_5SonnetLatest
	}
	return &ClaudeAdapter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *ClaudeAdapter) complete(ctx context.Context, maxTokens int64, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: claude request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// GenerateTaskInstructions implements §4.12's task-instruction
// generation: a short, task-specific brief for the assigned agent.
func (a *ClaudeAdapter) GenerateTaskInstructions(ctx context.Context, task *domain.Task, agent *domain.WorkerStatus) (string, error) {
	prompt := fmt.Sprintf(
		"You are briefing an autonomous coding agent on a task it has just been assigned.\n"+
			"Task: %s\nDescription: %s\nPriority: %s\nLabels: %s\nAgent role: %s\nAgent skills: %s\n\n"+
			"Write a short, concrete set of instructions (3-6 sentences) the agent should follow to complete this task.",
		task.Name, task.Description, task.Priority, strings.Join(task.Labels, ", "), agent.Role, strings.Join(agent.Skills, ", "))

	return a.complete(ctx, 512, prompt)
}

// AnalyzeBlocker implements §4.12's blocker analysis: given a
// reported blocker, suggest concrete unblocking steps.
func (a *ClaudeAdapter) AnalyzeBlocker(ctx context.Context, task *domain.Task, description, severity string) (string, error) {
	prompt := fmt.Sprintf(
		"An autonomous coding agent reported a blocker on this task.\n"+
			"Task: %s\nDescription: %s\nBlocker (%s severity): %s\n\n"+
			"Suggest 2-4 concrete, actionable steps to resolve the blocker.",
		task.Name, task.Description, severity, description)

	return a.complete(ctx, 512, prompt)
}

// ExpandProject implements §4.12's PRD-to-task-list expansion. Unlike
// the other two operations this is fatal on failure — there is no
// fallback task breakdown to fall back to.
func (a *ClaudeAdapter) ExpandProject(ctx context.Context, name, description string, opts ExpansionOptions) (*ExpansionResult, error) {
	maxTasks := opts.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 20
	}
	targetHours := opts.TargetHours
	if targetHours <= 0 {
		targetHours = 4
	}

	prompt := fmt.Sprintf(
		"Break the following project into at most %d discrete engineering tasks, each sized around %.1f hours.\n"+
			"Project: %s\nDescription: %s\n\n"+
			"Respond with ONLY a JSON object of this exact shape, no prose, no markdown fence:\n"+
			`{"tasks":[{"name":"...","description":"...","labels":["..."],"dependencies":[],"estimated_hours":0,"priority":"LOW|MEDIUM|HIGH|URGENT"}],"summary":"..."}`,
		maxTasks, targetHours, name, description)

	raw, err := a.complete(ctx, 4096, prompt)
	if err != nil {
		return nil, err
	}

	result, err := parseExpansion(raw)
	if err != nil {
		return nil, fmt.Errorf("ai: expand_project: %w", err)
	}
	if len(opts.DefaultLabels) > 0 {
		for i := range result.Tasks {
			if len(result.Tasks[i].Labels) == 0 {
				result.Tasks[i].Labels = opts.DefaultLabels
			}
		}
	}
	return result, nil
}
