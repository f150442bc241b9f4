// Package config handles configuration loading and management for veridoc.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the validation core.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Truth     TruthConfig     `mapstructure:"truth"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Router    RouterConfig    `mapstructure:"router"`
	Semantic  SemanticConfig  `mapstructure:"semantic"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Store     StoreConfig     `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings for the semantic reviewer.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TruthConfig holds truth-data settings.
type TruthConfig struct {
	// Dir is the directory containing per-family truth files (<family>.yaml).
	Dir string `mapstructure:"dir"`
	// Watch enables the fsnotify watcher that hot-reloads changed truth data.
	Watch bool `mapstructure:"watch"`
	// WatchDebounce coalesces rapid writes before triggering a reload.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// DetectorConfig holds fuzzy-detection settings. Weights and the acceptance
// threshold are configuration, never hard-coded in the detector.
type DetectorConfig struct {
	// WindowSize is the number of tokens per detection window.
	WindowSize int `mapstructure:"window_size"`
	// EditWeight weights the edit-distance similarity signal.
	EditWeight float64 `mapstructure:"edit_weight"`
	// TokenWeight weights the token-overlap similarity signal.
	TokenWeight float64 `mapstructure:"token_weight"`
	// MinConfidence drops detections scoring below it.
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// RouterConfig holds validator-routing settings.
type RouterConfig struct {
	// ValidatorTimeout bounds each validator invocation.
	ValidatorTimeout time.Duration `mapstructure:"validator_timeout"`
}

// SemanticConfig holds semantic-review settings.
type SemanticConfig struct {
	// Enabled turns the semantic stage on. When false the heuristic result
	// passes through unchanged.
	Enabled bool `mapstructure:"enabled"`
	// UpgradeThreshold is the minimum verdict confidence for an escalation
	// to raise an issue's severity.
	UpgradeThreshold float64 `mapstructure:"upgrade_threshold"`
	// DowngradeThreshold is the minimum verdict confidence for a downgrade
	// or reject to take effect.
	DowngradeThreshold float64 `mapstructure:"downgrade_threshold"`
	// MatchWindow is the maximum line distance for matching a verdict to a
	// heuristic issue of the same category.
	MatchWindow int `mapstructure:"match_window"`
	// HeuristicWeight weights the heuristic confidence in the combined score.
	HeuristicWeight float64 `mapstructure:"heuristic_weight"`
	// SemanticWeight weights the semantic confidence in the combined score.
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	// Timeout bounds one semantic-review call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxConcurrent caps concurrent semantic-review calls across workflows.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// WorkflowConfig holds orchestrator scheduling and retry settings.
type WorkflowConfig struct {
	// MaxConcurrent caps concurrently executing workflows.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// QueueSize bounds the FIFO admission queue. A submit beyond the cap and
	// the queue receives a backpressure error.
	QueueSize int `mapstructure:"queue_size"`
	// StageTimeout bounds each workflow stage.
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
	// MaxAttempts is the retry budget per stage, first try included.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the initial retry backoff delay.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BackoffMax caps the exponential backoff delay.
	BackoffMax time.Duration `mapstructure:"backoff_max"`
	// CheckpointInterval is the minimum time between periodic checkpoints.
	// Stage boundaries always checkpoint regardless of the interval.
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the sqlite database file path. Empty selects the project default.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, VERIDOC_*)
// 2. Project config (.veridoc.yaml in current directory or parent)
// 3. User config (~/.config/veridoc/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("VERIDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in default configuration without touching disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Detector.WindowSize < 1 {
		return fmt.Errorf("detector.window_size must be >= 1, got %d", c.Detector.WindowSize)
	}
	if c.Detector.EditWeight < 0 || c.Detector.TokenWeight < 0 {
		return fmt.Errorf("detector weights must be non-negative")
	}
	if c.Detector.EditWeight+c.Detector.TokenWeight == 0 {
		return fmt.Errorf("at least one detector weight must be positive")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be in [0,1], got %v", c.Detector.MinConfidence)
	}
	for name, th := range map[string]float64{
		"semantic.upgrade_threshold":   c.Semantic.UpgradeThreshold,
		"semantic.downgrade_threshold": c.Semantic.DowngradeThreshold,
	} {
		if th < 0 || th > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, th)
		}
	}
	if c.Workflow.MaxConcurrent < 1 {
		return fmt.Errorf("workflow.max_concurrent must be >= 1, got %d", c.Workflow.MaxConcurrent)
	}
	if c.Workflow.MaxAttempts < 1 {
		return fmt.Errorf("workflow.max_attempts must be >= 1, got %d", c.Workflow.MaxAttempts)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")

	// Truth data defaults
	v.SetDefault("truth.dir", "truth")
	v.SetDefault("truth.watch", false)
	v.SetDefault("truth.watch_debounce", "500ms")

	// Detector defaults
	v.SetDefault("detector.window_size", 4)
	v.SetDefault("detector.edit_weight", 0.6)
	v.SetDefault("detector.token_weight", 0.4)
	v.SetDefault("detector.min_confidence", 0.55)

	// Router defaults
	v.SetDefault("router.validator_timeout", "10s")

	// Semantic stage defaults
	v.SetDefault("semantic.enabled", false)
	v.SetDefault("semantic.upgrade_threshold", 0.8)
	v.SetDefault("semantic.downgrade_threshold", 0.8)
	v.SetDefault("semantic.match_window", 5)
	v.SetDefault("semantic.heuristic_weight", 0.6)
	v.SetDefault("semantic.semantic_weight", 0.4)
	v.SetDefault("semantic.timeout", "60s")
	v.SetDefault("semantic.max_concurrent", 2)

	// Workflow defaults
	v.SetDefault("workflow.max_concurrent", 4)
	v.SetDefault("workflow.queue_size", 64)
	v.SetDefault("workflow.stage_timeout", "2m")
	v.SetDefault("workflow.max_attempts", 3)
	v.SetDefault("workflow.backoff_base", "500ms")
	v.SetDefault("workflow.backoff_max", "30s")
	v.SetDefault("workflow.checkpoint_interval", "30s")

	// Store defaults
	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for veridoc.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "veridoc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "veridoc")
	}
	return filepath.Join(home, ".config", "veridoc")
}

// findProjectConfig searches for .veridoc.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, ".veridoc.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
	}
	return s
}
