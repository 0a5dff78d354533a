// Package config loads Marcus's layered configuration — a YAML file,
// overridden by MARCUS_-prefixed environment variables — into a
// single Config struct, using
// spf13/viper the way hk9890-perles' cmd package layers its own
// settings. This is the "thin config collaborator" the core depends
// on for an opaque environment contract: which kanban provider to
// use, provider/AI credentials, and resilience/monitor threshold
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one marcus process.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Kanban     KanbanConfig     `mapstructure:"kanban"`
	AI         AIConfig         `mapstructure:"ai"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	LogLevel   string           `mapstructure:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// KanbanConfig selects and authenticates the board backend. The
// backend itself is out of scope (spec.md's explicit Non-goal); only
// "memory" is a working board. Any other value builds a
// kanban.StubProvider whose every call returns an error; startup logs
// its Connect error and the server keeps running.
type KanbanConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
}

// AIConfig selects the PRD-expansion/instruction-generation adapter.
// Provider "none" uses ai.NoopAdapter; "anthropic" requires APIKey.
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type NotifyConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	SlackChannel    string `mapstructure:"slack_channel"`
	SlackUsername   string `mapstructure:"slack_username"`
	ToastEnabled    bool   `mapstructure:"toast_enabled"`
	DashboardURL    string `mapstructure:"dashboard_url"`
}

type DashboardConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	JetStream bool   `mapstructure:"jetstream"`
	DataDir   string `mapstructure:"data_dir"`
}

type ResilienceConfig struct {
	RetryMaxAttempts     int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay        time.Duration `mapstructure:"retry_max_delay"`
	RetryMultiplier      float64       `mapstructure:"retry_multiplier"`
	BreakerFailThreshold uint32        `mapstructure:"breaker_fail_threshold"`
	BreakerSuccThreshold uint32        `mapstructure:"breaker_success_threshold"`
	BreakerTimeout       time.Duration `mapstructure:"breaker_timeout"`
}

type MonitorConfig struct {
	FrequencyThreshold int    `mapstructure:"frequency_threshold"`
	BurstThreshold     int    `mapstructure:"burst_threshold"`
	SnapshotPath       string `mapstructure:"snapshot_path"`
}

type ReconcileConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type ScoringConfig struct {
	SkillWeight    float64 `mapstructure:"skill_weight"`
	PriorityWeight float64 `mapstructure:"priority_weight"`
	AgeWeight      float64 `mapstructure:"age_weight"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// Load layers defaults, an optional YAML file at path (missing file
// is not an error — every field has a default), MARCUS_-prefixed
// environment variables, and returns the resolved Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("MARCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)

	v.SetDefault("kanban.provider", "memory")

	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.model", "")

	v.SetDefault("notify.slack_username", "marcus")
	v.SetDefault("notify.toast_enabled", false)
	v.SetDefault("notify.dashboard_url", "http://localhost:3000")

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 4225)
	v.SetDefault("dashboard.jetstream", false)

	v.SetDefault("resilience.retry_max_attempts", 3)
	v.SetDefault("resilience.retry_base_delay", time.Second)
	v.SetDefault("resilience.retry_max_delay", 60*time.Second)
	v.SetDefault("resilience.retry_multiplier", 2.0)
	v.SetDefault("resilience.breaker_fail_threshold", 5)
	v.SetDefault("resilience.breaker_success_threshold", 2)
	v.SetDefault("resilience.breaker_timeout", 60*time.Second)

	v.SetDefault("monitor.frequency_threshold", 10)
	v.SetDefault("monitor.burst_threshold", 15)
	v.SetDefault("monitor.snapshot_path", "data/monitor-snapshot.json")

	v.SetDefault("reconcile.tick_interval", 60*time.Second)

	v.SetDefault("scoring.skill_weight", 0.5)
	v.SetDefault("scoring.priority_weight", 0.4)
	v.SetDefault("scoring.age_weight", 0.1)

	v.SetDefault("ledger.path", "data/ledger.json")

	v.SetDefault("log_level", "info")
}
