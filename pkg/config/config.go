// Package config loads the AgentConfig that parameterizes a Driver, its
// tool dispatcher, memory backend and observability wiring from YAML,
// with environment variable expansion for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AgentConfig is the top-level configuration document, mirroring the
// spec's AgentConfig plus the ambient sections every deployable agent
// needs (LLM provider credentials, tool policy, memory backend,
// observability).
type AgentConfig struct {
	Name           string   `yaml:"name"`
	SystemPrompt   string   `yaml:"system_prompt"`
	MaxIterations  int      `yaml:"max_iterations"`
	TokenBudget    int      `yaml:"token_budget"`
	AllowList      []string `yaml:"allow_list,omitempty"`
	ChainOfThought bool     `yaml:"chain_of_thought"`
	SessionID      string   `yaml:"session_id,omitempty"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`

	LLM           LLMConfig           `yaml:"llm"`
	ToolPolicy    ToolPolicyConfig    `yaml:"tool_policy"`
	Memory        MemoryConfig        `yaml:"memory"`
	Observability ObservabilityConfig `yaml:"observability"`
	Features      FeaturesConfig      `yaml:"features"`
}

// FeaturesConfig toggles the optional built-in control tools (spec
// §4.2's table): each is registered only when its switch is on, since
// they pull in state (a task.Manager, a KvStore, an approval channel)
// that a minimal deployment may not want.
type FeaturesConfig struct {
	Plan        bool `yaml:"plan"`
	Tasks       bool `yaml:"tasks"`
	Memory      bool `yaml:"memory"`
	SubAgents   bool `yaml:"sub_agents"`
	HumanInLoop bool `yaml:"human_in_loop"`
}

// SetDefaults fills in zero-valued fields with the framework's defaults.
func (c *AgentConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "agent"
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	if c.TokenBudget == 0 {
		c.TokenBudget = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	c.LLM.SetDefaults()
	c.ToolPolicy.SetDefaults()
	c.Memory.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate reports the first configuration error found.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("config: max_iterations must be positive")
	}
	if c.TokenBudget <= 0 {
		return fmt.Errorf("config: token_budget must be positive")
	}
	return c.LLM.Validate()
}

// LLMConfig selects and configures the gateway backend.
type LLMConfig struct {
	// Provider selects the concrete Gateway: "openai" or "gemini".
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Temperature *float64      `yaml:"temperature,omitempty"`
	MaxTokens   *int          `yaml:"max_tokens,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

func (c *LLMConfig) Validate() error {
	if c.Provider != "openai" && c.Provider != "gemini" {
		return fmt.Errorf("config: unknown llm provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("config: llm api_key is required (set llm.api_key or OPENAI_API_KEY)")
	}
	return nil
}

// ToolPolicyConfig configures the dispatcher's execution policy and
// approval requirements.
type ToolPolicyConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	ApprovalGate   string        `yaml:"approval_gate,omitempty"` // "console" selects the console gate in cmd/agentcore; any other value approves every call
	NeedsApproval  []string      `yaml:"needs_approval,omitempty"`
	FatalErrors    bool          `yaml:"fatal_errors"`
}

func (c *ToolPolicyConfig) SetDefaults() {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 5
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 250 * time.Millisecond
	}
}

// MemoryConfig selects the KvStore/SessionStore backend.
type MemoryConfig struct {
	// Backend selects the storage implementation: "memory", "file",
	// "etcd", or "sql".
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path,omitempty"`
	DSN     string   `yaml:"dsn,omitempty"`
	Servers []string `yaml:"servers,omitempty"`
}

func (c *MemoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// ObservabilityConfig wires tracing and metrics.
type ObservabilityConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "agentcore"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}

// Defaults returns a zero-config AgentConfig usable with nothing but
// OPENAI_API_KEY set in the environment, mirroring the teacher's
// zero-config mode.
func Defaults() *AgentConfig {
	cfg := &AgentConfig{SystemPrompt: "You are a helpful assistant."}
	cfg.SetDefaults()
	return cfg
}

// Load reads an AgentConfig from a YAML file at path, applying a
// best-effort ".env" overlay from the current working directory first,
// then defaults, then validation.
func Load(path string) (*AgentConfig, error) {
	_ = godotenv.Load() // best-effort; missing .env is not an error

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg AgentConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
