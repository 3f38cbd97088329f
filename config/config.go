// Package config loads rove's runtime configuration from the environment
// and an optional YAML file.
//
// The model connection comes from environment variables (a .env file is
// loaded first when present): LLM_MODEL_ID, LLM_API_KEY, LLM_BASE_URL.
// Agent and tool settings come from a YAML config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for the model connection.
const (
	EnvModelID = "LLM_MODEL_ID"
	EnvAPIKey  = "LLM_API_KEY"
	EnvBaseURL = "LLM_BASE_URL"

	EnvSearchAPIKey = "TAVILY_API_KEY"
)

// Duration wraps time.Duration with YAML decoding from strings like "90s".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Workspace configures the filesystem tools.
type Workspace struct {
	Root     string   `yaml:"root"`
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes an MCP server subprocess to connect tools from.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Agent holds loop-control settings.
type Agent struct {
	// Kind selects the strategy: "react", "plansolve", or "reflection".
	Kind            string   `yaml:"kind"`
	MaxSteps        int      `yaml:"max_steps"`
	MaxParseRetries int      `yaml:"max_parse_retries"`
	Timeout         Duration `yaml:"timeout"`
	MaxPlanSteps    int      `yaml:"max_plan_steps"`
}

// Config is the full runtime configuration.
type Config struct {
	// Model connection, from environment.
	ModelID string `yaml:"-"`
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"-"`

	Agent        Agent       `yaml:"agent"`
	Workspace    Workspace   `yaml:"workspace"`
	SearchAPIKey string      `yaml:"search_api_key"`
	MCPServers   []MCPServer `yaml:"mcp_servers"`
}

// Load reads configuration. A .env file in the working directory is loaded
// when present, then the environment, then the YAML file at path when path
// is non-empty.
func Load(path string) (*Config, error) {
	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := &Config{
		ModelID: os.Getenv(EnvModelID),
		APIKey:  os.Getenv(EnvAPIKey),
		BaseURL: os.Getenv(EnvBaseURL),
		Agent:   Agent{Kind: "react"},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	if cfg.SearchAPIKey == "" {
		cfg.SearchAPIKey = os.Getenv(EnvSearchAPIKey)
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ModelID == "" {
		return fmt.Errorf("%s is not set", EnvModelID)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%s is not set", EnvAPIKey)
	}
	switch c.Agent.Kind {
	case "react", "plansolve", "reflection":
	default:
		return fmt.Errorf("unknown agent kind %q (want react, plansolve, or reflection)", c.Agent.Kind)
	}
	if c.Agent.MaxSteps < 0 {
		return fmt.Errorf("agent.max_steps must not be negative")
	}
	for _, srv := range c.MCPServers {
		if srv.Name == "" || srv.Command == "" {
			return fmt.Errorf("mcp server entries need both name and command")
		}
	}
	return nil
}
