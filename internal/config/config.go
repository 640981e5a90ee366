package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

// DefaultMetrics is the metric list applied when a caller does not name any.
var DefaultMetrics = []string{"answer_relevancy", "faithfulness", "contextual_precision"}

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
}

type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type EvaluationConfig struct {
	Threshold      float64       `yaml:"threshold"`                 // analytics pass threshold
	Timeout        time.Duration `yaml:"timeout,omitempty"`         // per judge-model call
	NumQuestions   int           `yaml:"num_questions,omitempty"`   // default synthetic dataset size
	ReasonLanguage string        `yaml:"reason_language,omitempty"` // language for scorer justifications
	Metrics        []string      `yaml:"metrics,omitempty"`         // default metric list for runs
	FailureLog     string        `yaml:"failure_log,omitempty"`     // out-of-band run failure diagnostics
}

type StorageConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"` // SQLite file path
}

func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns a config with defaults applied and no file read.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(cfg.LLM.DefaultProvider) == "" {
		cfg.LLM.DefaultProvider = "claude"
	}
	if cfg.Evaluation.Threshold <= 0 || cfg.Evaluation.Threshold > 1 {
		cfg.Evaluation.Threshold = 0.5
	}
	if cfg.Evaluation.NumQuestions <= 0 {
		cfg.Evaluation.NumQuestions = 5
	}
	if len(cfg.Evaluation.Metrics) == 0 {
		cfg.Evaluation.Metrics = append([]string(nil), DefaultMetrics...)
	}
	if strings.TrimSpace(cfg.Evaluation.FailureLog) == "" {
		cfg.Evaluation.FailureLog = "data/evaluation_errors.log"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	} else if v := strings.TrimSpace(os.Getenv("ANTHROPIC_AUTH_TOKEN")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	}

	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = v
		cfg.LLM.Providers["openai"] = p
	}
}
