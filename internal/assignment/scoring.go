package assignment

import (
	"time"

	"github.com/marcus-mcp/marcus/internal/domain"
)

// ScoringConfig parameterizes the composite score from §4.7 step 4.
// Defaults match the spec's 0.5/0.4/0.1 split; the exact weights were
// an open question the spec leaves for the implementation to pin.
type ScoringConfig struct {
	SkillWeight    float64
	PriorityWeight float64
	AgeWeight      float64
	AgeCapWindow   time.Duration
}

// DefaultScoringConfig matches §4.7's defaults, with a 7-day age cap
// (a task older than a week gets the full age boost).
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		SkillWeight:    0.5,
		PriorityWeight: 0.4,
		AgeWeight:      0.1,
		AgeCapWindow:   7 * 24 * time.Hour,
	}
}

// score computes the composite score for assigning task to agent, per
// §4.7 step 4: skill-match + priority weight + age boost.
func (c ScoringConfig) score(task *domain.Task, agent *domain.WorkerStatus, now time.Time) float64 {
	skill := agent.SkillMatch(task.Labels)
	priority := task.Priority.Weight()

	age := 0.0
	if !task.CreatedAt.IsZero() && c.AgeCapWindow > 0 {
		elapsed := now.Sub(task.CreatedAt)
		age = float64(elapsed) / float64(c.AgeCapWindow)
		if age > 1.0 {
			age = 1.0
		}
		if age < 0 {
			age = 0
		}
	}

	return c.SkillWeight*skill + c.PriorityWeight*priority + c.AgeWeight*age
}
