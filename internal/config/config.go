// Package config loads the runtime configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPrefix namespaces the override variables, e.g. REVTEXTOS_PROVIDER.
const envPrefix = "REVTEXTOS_"

// Config is the full runtime configuration.
type Config struct {
	Provider             string            `yaml:"provider"`
	APIKeys              map[string]string `yaml:"api_keys"`
	Model                map[string]string `yaml:"model"`
	MaxIterations        int               `yaml:"max_iterations"`
	ConvergenceThreshold float64           `yaml:"convergence_threshold"`
	Temperature          float64           `yaml:"temperature"`
	MaxTokens            int               `yaml:"max_tokens"`
	RequestsPerMinute    int               `yaml:"requests_per_minute"`
	MaxRetries           int               `yaml:"max_retries"`
	TimeoutSeconds       int               `yaml:"timeout_seconds"`
	ProcessingMode       string            `yaml:"processing_mode"`
	Phases               []string          `yaml:"phases"`
	Workers              int               `yaml:"workers"`
	OutputDir            string            `yaml:"output_dir"`
	DataDir              string            `yaml:"data_dir"`
	Store                string            `yaml:"store"`
	GCPProject           string            `yaml:"gcp_project"`
	GCPRegion            string            `yaml:"gcp_region"`
	Mock                 bool              `yaml:"mock"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider:             "gemini",
		APIKeys:              map[string]string{},
		Model:                map[string]string{},
		MaxIterations:        5,
		ConvergenceThreshold: 0.95,
		Temperature:          0.3,
		MaxTokens:            8192,
		RequestsPerMinute:    60,
		MaxRetries:           3,
		TimeoutSeconds:       120,
		ProcessingMode:       "sections",
		Phases:               []string{"grammar", "technical"},
		Workers:              1,
		OutputDir:            "./output",
		DataDir:              "./data",
		Store:                "json",
		GCPRegion:            "us-central1",
	}
}

// Load reads the YAML file at path, fills gaps with defaults and applies
// environment overrides. An empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetEnv returns the environment value for key or the fallback.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.Provider = GetEnv(envPrefix+"PROVIDER", c.Provider)
	c.ProcessingMode = GetEnv(envPrefix+"PROCESSING_MODE", c.ProcessingMode)
	c.OutputDir = GetEnv(envPrefix+"OUTPUT_DIR", c.OutputDir)
	c.DataDir = GetEnv(envPrefix+"DATA_DIR", c.DataDir)
	c.Store = GetEnv(envPrefix+"STORE", c.Store)
	c.GCPProject = GetEnv(envPrefix+"GCP_PROJECT", c.GCPProject)
	c.GCPRegion = GetEnv(envPrefix+"GCP_REGION", c.GCPRegion)

	if v := GetEnv(envPrefix+"API_KEY", ""); v != "" {
		if c.APIKeys == nil {
			c.APIKeys = map[string]string{}
		}
		c.APIKeys[strings.ToLower(c.Provider)] = v
	}
	if v := GetEnv(envPrefix+"MODEL", ""); v != "" {
		if c.Model == nil {
			c.Model = map[string]string{}
		}
		c.Model[strings.ToLower(c.Provider)] = v
	}
	if v := GetEnv(envPrefix+"PHASES", ""); v != "" {
		c.Phases = splitList(v)
	}
	if v := GetEnv(envPrefix+"MOCK", ""); v != "" {
		c.Mock = v == "1" || strings.EqualFold(v, "true")
	}

	overrideInt(envPrefix+"MAX_ITERATIONS", &c.MaxIterations)
	overrideInt(envPrefix+"MAX_TOKENS", &c.MaxTokens)
	overrideInt(envPrefix+"REQUESTS_PER_MINUTE", &c.RequestsPerMinute)
	overrideInt(envPrefix+"MAX_RETRIES", &c.MaxRetries)
	overrideInt(envPrefix+"TIMEOUT_SECONDS", &c.TimeoutSeconds)
	overrideInt(envPrefix+"WORKERS", &c.Workers)
	overrideFloat(envPrefix+"CONVERGENCE_THRESHOLD", &c.ConvergenceThreshold)
	overrideFloat(envPrefix+"TEMPERATURE", &c.Temperature)
}

func overrideInt(key string, dst *int) {
	if v := GetEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideFloat(key string, dst *float64) {
	if v := GetEnv(key, ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects out-of-range values instead of silently fixing them.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.ConvergenceThreshold <= 0 || c.ConvergenceThreshold > 1 {
		return fmt.Errorf("convergence_threshold must be in (0, 1], got %g", c.ConvergenceThreshold)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %g", c.Temperature)
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be >= 1, got %d", c.RequestsPerMinute)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be >= 1, got %d", c.TimeoutSeconds)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch c.ProcessingMode {
	case "sections", "full_text":
	default:
		return fmt.Errorf("processing_mode must be sections or full_text, got %q", c.ProcessingMode)
	}
	switch c.Store {
	case "json", "firestore":
	default:
		return fmt.Errorf("store must be json or firestore, got %q", c.Store)
	}
	if c.Store == "firestore" && c.GCPProject == "" {
		return fmt.Errorf("store firestore requires gcp_project")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("at least one review phase is required")
	}
	return nil
}

// APIKey returns the key configured for the active provider.
func (c *Config) APIKey() string {
	return c.APIKeys[strings.ToLower(c.Provider)]
}

// ModelName returns the model configured for the active provider, empty when
// the provider default should be used.
func (c *Config) ModelName() string {
	return c.Model[strings.ToLower(c.Provider)]
}
