// Package config loads agentconsole settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/martinemde/agentconsole/agentloop"
)

// EnvPrefix prefixes every environment override, e.g. AGENTCONSOLE_LLM_MODEL.
const EnvPrefix = "AGENTCONSOLE"

// DefaultMCPURL is the SSE endpoint of a locally running tool server.
const DefaultMCPURL = "http://localhost:8081/sse"

// Config is the complete console configuration.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	MCP     MCPConfig     `mapstructure:"mcp" yaml:"mcp"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// AgentConfig describes the agent persona.
type AgentConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Description string `mapstructure:"description" yaml:"description"`
	Instruction string `mapstructure:"instruction" yaml:"instruction"`
	UserID      string `mapstructure:"user_id" yaml:"user_id"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider    string   `mapstructure:"provider" yaml:"provider"`
	Model       string   `mapstructure:"model" yaml:"model"`
	APIKey      string   `mapstructure:"api_key" yaml:"api_key,omitempty"`
	MaxTokens   int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	MaxRetries  int      `mapstructure:"max_retries" yaml:"max_retries"`
}

// MCPConfig locates the tool server.
type MCPConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SessionConfig bounds each conversation.
type SessionConfig struct {
	MaxToolRounds       int           `mapstructure:"max_tool_rounds" yaml:"max_tool_rounds"`
	MaxTurns            int           `mapstructure:"max_turns" yaml:"max_turns"`
	TurnTimeout         time.Duration `mapstructure:"turn_timeout" yaml:"turn_timeout"`
	LoopDetection       bool          `mapstructure:"loop_detection" yaml:"loop_detection"`
	LoopDetectionWindow int           `mapstructure:"loop_detection_window" yaml:"loop_detection_window"`
	ParallelToolCalls   bool          `mapstructure:"parallel_tool_calls" yaml:"parallel_tool_calls"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	profile := agentloop.DefaultProfile()
	runner := agentloop.DefaultRunnerConfig()
	return &Config{
		Agent: AgentConfig{
			Name:        profile.Name,
			Description: profile.Description,
			Instruction: profile.Instruction,
			UserID:      profile.UserID,
		},
		LLM: LLMConfig{
			Provider:   profile.Provider,
			Model:      profile.Model,
			MaxTokens:  runner.MaxTokens,
			MaxRetries: runner.Retry.MaxRetries,
		},
		MCP: MCPConfig{
			URL:     DefaultMCPURL,
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			MaxToolRounds:       runner.MaxToolRounds,
			MaxTurns:            runner.MaxTurns,
			LoopDetection:       runner.EnableLoopDetection,
			LoopDetectionWindow: runner.LoopDetectionWindow,
			ParallelToolCalls:   runner.ParallelToolCalls,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// DefaultPath returns $HOME/.agentconsole/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentconsole", "config.yaml")
}

// Load reads the config file at path, or the default path when empty, and
// applies AGENTCONSOLE_* environment overrides. A missing file is not an
// error; the defaults are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default exists for these, so AutomaticEnv alone would not see them.
	_ = v.BindEnv("llm.api_key")
	_ = v.BindEnv("llm.temperature")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("agent.name", d.Agent.Name)
	v.SetDefault("agent.description", d.Agent.Description)
	v.SetDefault("agent.instruction", d.Agent.Instruction)
	v.SetDefault("agent.user_id", d.Agent.UserID)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)

	v.SetDefault("mcp.url", d.MCP.URL)
	v.SetDefault("mcp.timeout", d.MCP.Timeout)

	v.SetDefault("session.max_tool_rounds", d.Session.MaxToolRounds)
	v.SetDefault("session.max_turns", d.Session.MaxTurns)
	v.SetDefault("session.turn_timeout", d.Session.TurnTimeout)
	v.SetDefault("session.loop_detection", d.Session.LoopDetection)
	v.SetDefault("session.loop_detection_window", d.Session.LoopDetectionWindow)
	v.SetDefault("session.parallel_tool_calls", d.Session.ParallelToolCalls)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.LLM.Provider) == "" {
		errs = append(errs, errors.New("llm.provider cannot be empty"))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.model cannot be empty"))
	}
	if strings.TrimSpace(c.MCP.URL) == "" {
		errs = append(errs, errors.New("mcp.url cannot be empty"))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must not be negative, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.MCP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("mcp.timeout must not be negative, got %s", c.MCP.Timeout))
	}
	if c.Session.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("session.max_tool_rounds must not be negative, got %d", c.Session.MaxToolRounds))
	}
	if c.Session.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("session.max_turns must not be negative, got %d", c.Session.MaxTurns))
	}
	if c.Session.TurnTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.turn_timeout must not be negative, got %s", c.Session.TurnTimeout))
	}
	if c.Session.LoopDetectionWindow < 0 {
		errs = append(errs, fmt.Errorf("session.loop_detection_window must not be negative, got %d", c.Session.LoopDetectionWindow))
	}
	return errors.Join(errs...)
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// conventional environment variable (GEMINI_API_KEY, OPENAI_API_KEY, ...).
func (c LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	provider := strings.ToUpper(strings.TrimSpace(c.Provider))
	if key := os.Getenv(provider + "_API_KEY"); key != "" {
		return key
	}
	if provider == "GEMINI" {
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// Profile converts the agent and model settings into an agent profile.
func (c *Config) Profile() agentloop.Profile {
	return agentloop.Profile{
		Name:        c.Agent.Name,
		Description: c.Agent.Description,
		Instruction: c.Agent.Instruction,
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		UserID:      c.Agent.UserID,
	}
}

// RunnerConfig converts the session and model settings into runner limits.
func (c *Config) RunnerConfig() agentloop.RunnerConfig {
	rc := agentloop.DefaultRunnerConfig()
	rc.Profile = c.Profile()
	rc.MaxTokens = c.LLM.MaxTokens
	rc.Temperature = c.LLM.Temperature
	rc.Retry.MaxRetries = c.LLM.MaxRetries
	rc.MaxToolRounds = c.Session.MaxToolRounds
	rc.MaxTurns = c.Session.MaxTurns
	rc.EnableLoopDetection = c.Session.LoopDetection
	rc.LoopDetectionWindow = c.Session.LoopDetectionWindow
	rc.ParallelToolCalls = c.Session.ParallelToolCalls
	return rc
}
