// pkg/config/config.go
package config

import (
	"fmt"

	"github.com/andrej220/luauci/pkg/config/filestore"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultBaseURL             = "https://apis.roblox.com"
	DefaultScriptPath          = "ci/RunTests.luau"
	DefaultPollIntervalSeconds = 3
	DefaultTimeoutSeconds      = 300
)

var validate = validator.New()

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// RunnerConfig holds everything the orchestrator reads from its config
// file. Flags override individual fields; the API key never lives here.
type RunnerConfig struct {
	BaseURL             string      `yaml:"baseURL" json:"baseURL" validate:"required,url"`
	ScriptPath          string      `yaml:"scriptPath" json:"scriptPath" validate:"required"`
	PollIntervalSeconds int         `yaml:"pollIntervalSeconds" json:"pollIntervalSeconds" validate:"gt=0"`
	TimeoutSeconds      int         `yaml:"timeoutSeconds" json:"timeoutSeconds" validate:"gt=0"`
	Kafka               KafkaConfig `yaml:"kafka" json:"kafka"`
}

func Default() RunnerConfig {
	return RunnerConfig{
		BaseURL:             DefaultBaseURL,
		ScriptPath:          DefaultScriptPath,
		PollIntervalSeconds: DefaultPollIntervalSeconds,
		TimeoutSeconds:      DefaultTimeoutSeconds,
	}
}

// Load reads a RunnerConfig from the YAML file at path, filling unset
// fields with defaults.
func Load(path string) (RunnerConfig, error) {
	cfg := Default()
	store := filestore.New(path)
	if err := store.Load(&cfg); err != nil {
		return RunnerConfig{}, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills zero-valued fields with defaults.
func (c *RunnerConfig) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ScriptPath == "" {
		c.ScriptPath = DefaultScriptPath
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (c *RunnerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid runner config: %w", err)
	}
	return nil
}
