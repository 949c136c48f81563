package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch" jsonschema:"description=HTTP fetch configuration"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=Enrichment service configuration"`
	Publishers PublishersConfig `yaml:"publishers" json:"publishers" jsonschema:"description=Publisher selection and overrides"`
}

// FetchConfig holds HTTP client settings shared by all publishers
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP request timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for HTTP requests"`
	Workers   int           `yaml:"workers" json:"workers" jsonschema:"default=8,description=Default per-publisher fetch concurrency"`
}

// LLMConfig holds enrichment service settings
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.openai.com/v1,description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"default=gpt-4o-mini,description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.2,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=4096,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=120s,description=Request timeout"`
	Workers      int           `yaml:"workers" json:"workers" jsonschema:"default=8,description=Concurrent enrichment calls"`
	RateRPM      int           `yaml:"rate_rpm" json:"rate_rpm" jsonschema:"default=0,description=Requests per minute limit (0 = unlimited)"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries" jsonschema:"default=5,description=Retries per enrichment call"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay" jsonschema:"default=1s,description=Initial backoff delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay" jsonschema:"default=30s,description=Backoff delay cap"`
	UseJSONMode  bool          `yaml:"json_mode" json:"json_mode" jsonschema:"default=true,description=Use JSON response format (not all models support this)"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt override (empty = built-in prompt)"`
}

// PublishersConfig selects and tunes the built-in publisher set
type PublishersConfig struct {
	Enabled   []string                     `yaml:"enabled" json:"enabled" jsonschema:"description=Publisher names to run (empty = all built-ins)"`
	Overrides map[string]PublisherOverride `yaml:"overrides" json:"overrides" jsonschema:"description=Per-publisher tuning by name"`
}

// PublisherOverride tunes one built-in publisher
type PublisherOverride struct {
	Target      int `yaml:"target" json:"target" jsonschema:"description=Stop discovery once this many candidates found"`
	Cap         int `yaml:"cap" json:"cap" jsonschema:"description=Hard cap on candidates"`
	Concurrency int `yaml:"concurrency" json:"concurrency" jsonschema:"description=Fetch concurrency for this publisher"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given,
// picking the API key up from the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if c.Fetch.Workers == 0 {
		c.Fetch.Workers = 8
	}

	if c.LLM.Endpoint == "" {
		c.LLM.Endpoint = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}
	if c.LLM.Workers == 0 {
		c.LLM.Workers = 8
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 5
	}
	if c.LLM.BaseDelay == 0 {
		c.LLM.BaseDelay = time.Second
	}
	if c.LLM.MaxDelay == 0 {
		c.LLM.MaxDelay = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be non-negative")
	}
	if cfg.LLM.BaseDelay <= 0 || cfg.LLM.MaxDelay < cfg.LLM.BaseDelay {
		return fmt.Errorf("llm backoff delays must satisfy 0 < base_delay <= max_delay")
	}
	if cfg.LLM.RateRPM < 0 {
		return fmt.Errorf("llm.rate_rpm must be non-negative")
	}
	if cfg.Fetch.Timeout < time.Second {
		return fmt.Errorf("fetch.timeout must be at least 1 second")
	}
	if cfg.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1")
	}
	for name, o := range cfg.Publishers.Overrides {
		if o.Target < 0 || o.Cap < 0 || o.Concurrency < 0 {
			return fmt.Errorf("publishers.overrides.%s: values must be non-negative", name)
		}
		if o.Cap > 0 && o.Target > o.Cap {
			return fmt.Errorf("publishers.overrides.%s: target exceeds cap", name)
		}
	}
	return nil
}
