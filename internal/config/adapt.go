package config

import (
	"time"

	"github.com/marcus-mcp/marcus/internal/assignment"
	"github.com/marcus-mcp/marcus/internal/monitor"
	"github.com/marcus-mcp/marcus/internal/reconcile"
	"github.com/marcus-mcp/marcus/internal/resilience"
)

// ToRetryConfig renders the resilience retry overrides into C1's own
// config type; zero-value fields are never produced here since every
// field carries a Load default.
func (c *Config) ToRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: c.Resilience.RetryMaxAttempts,
		BaseDelay:   c.Resilience.RetryBaseDelay,
		MaxDelay:    c.Resilience.RetryMaxDelay,
		Multiplier:  c.Resilience.RetryMultiplier,
		Jitter:      true,
	}
}

func (c *Config) ToBreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: c.Resilience.BreakerFailThreshold,
		SuccessThreshold: c.Resilience.BreakerSuccThreshold,
		Timeout:          c.Resilience.BreakerTimeout,
		MonitorWindow:    5 * time.Minute, // matches resilience.DefaultBreakerConfig
	}
}

// ToMonitorConfig starts from monitor.DefaultConfig and overrides only
// the thresholds exposed as configuration, leaving the rest (history
// size, windows, retention) at their spec-mandated defaults.
func (c *Config) ToMonitorConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	cfg.FrequencyThreshold = c.Monitor.FrequencyThreshold
	cfg.BurstThreshold = c.Monitor.BurstThreshold
	cfg.SnapshotPath = c.Monitor.SnapshotPath
	return cfg
}

func (c *Config) ToReconcileConfig() reconcile.Config {
	cfg := reconcile.DefaultConfig()
	cfg.TickInterval = c.Reconcile.TickInterval
	return cfg
}

func (c *Config) ToScoringConfig() assignment.ScoringConfig {
	cfg := assignment.DefaultScoringConfig()
	cfg.SkillWeight = c.Scoring.SkillWeight
	cfg.PriorityWeight = c.Scoring.PriorityWeight
	cfg.AgeWeight = c.Scoring.AgeWeight
	return cfg
}
