// Package config provides configuration management for PharmaScope.
// Settings are read from an optional YAML file (config/agent_config.yaml by
// default), then overridden by environment variables with the PHARMASCOPE_
// prefix. A missing or malformed config file falls back to the documented
// defaults rather than failing startup.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file location used when none is given.
const DefaultConfigPath = "config/agent_config.yaml"

// Config holds all configuration settings for the PharmaScope agent.
type Config struct {
	// Competitors is the default competitor set analyzed per run.
	Competitors []string `yaml:"competitors"`

	// TherapeuticAreas scopes research to specific areas.
	TherapeuticAreas []string `yaml:"therapeutic_areas"`

	Monitoring MonitoringConfig `yaml:"monitoring"`
	Memory     MemoryConfig     `yaml:"memory"`
	LLM        LLMConfig        `yaml:"llm"`
	Tools      ToolsConfig      `yaml:"tools"`
	Server     ServerConfig     `yaml:"server"`
	Security   SecurityConfig   `yaml:"security"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// MonitoringConfig controls the continuous monitoring loop.
type MonitoringConfig struct {
	// UpdateInterval is how often the monitoring loop runs (default: 24h).
	UpdateInterval string `yaml:"update_interval"`
}

// MemoryConfig groups the session service, memory bank, and compaction settings.
type MemoryConfig struct {
	SessionService SessionServiceConfig `yaml:"session_service"`
	MemoryBank     MemoryBankConfig     `yaml:"memory_bank"`
	Compaction     CompactionConfig     `yaml:"context_compaction"`
}

// SessionServiceConfig controls the in-process session store.
type SessionServiceConfig struct {
	// MaxSessions is the live-session cap; least-recently-accessed sessions
	// are evicted beyond it (default: 100).
	MaxSessions int `yaml:"max_sessions"`

	// MaxCheckpoints bounds retained checkpoints; the oldest is dropped on
	// overflow (default: 50).
	MaxCheckpoints int `yaml:"max_checkpoints"`
}

// MemoryBankConfig controls long-term analysis storage.
type MemoryBankConfig struct {
	// Enabled toggles the memory bank; when false, storage and retrieval
	// silently return empty results (default: true).
	Enabled bool `yaml:"enabled"`

	// StorageEngine selects the backend: sqlite or postgres (default: sqlite).
	StorageEngine string `yaml:"storage_engine"`

	// DSN is the backend connection string. For SQLite this is the database
	// file path (default: ./data/memory_bank.db).
	DSN string `yaml:"dsn"`
}

// CompactionConfig controls the context compactor.
type CompactionConfig struct {
	// Enabled toggles compaction (default: true).
	Enabled bool `yaml:"enabled"`

	// MaxContextSize is the serialized-character budget; the token budget is
	// approximated as this value divided by 4 (default: 100000).
	MaxContextSize int `yaml:"max_context_size"`
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider        string `yaml:"provider"`         // ollama, openai, anthropic (default: ollama)
	OllamaURL       string `yaml:"ollama_url"`       // default: http://localhost:11434
	OllamaModel     string `yaml:"ollama_model"`     // default: qwen2.5:7b
	EmbeddingModel  string `yaml:"embedding_model"`  // default: nomic-embed-text
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`     // default: gpt-4
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"` // default: claude-3-5-sonnet-20241022
}

// ToolsConfig controls the optional external data sources.
type ToolsConfig struct {
	Search         SearchToolConfig `yaml:"search"`
	FDA            APIToolConfig    `yaml:"fda"`
	ClinicalTrials APIToolConfig    `yaml:"clinicaltrials"`
}

// SearchToolConfig configures the web search tool. Without an API key the
// tool downgrades to returning no results.
type SearchToolConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"engine_id"`
}

// APIToolConfig configures a public REST data source.
type APIToolConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// ServerConfig contains the status server configuration.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"` // default: 7351
	Host    string `yaml:"host"` // default: 127.0.0.1
}

// SecurityConfig contains authentication settings for the status server.
type SecurityConfig struct {
	// Mode is development or production; development skips auth (default: development).
	Mode     string `yaml:"mode"`
	APIToken string `yaml:"api_token"`
}

// EvaluationConfig controls the run evaluator.
type EvaluationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Metrics []string `yaml:"metrics"`
}

// Load reads configuration from the given YAML file path and applies
// environment-variable overrides. An empty path uses DefaultConfigPath.
// A missing or unreadable file is logged and the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Printf("config: file not found at %s, using defaults", path)
	case err != nil:
		log.Printf("config: failed to read %s, using defaults: %v", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Monitoring: MonitoringConfig{
			UpdateInterval: "24h",
		},
		Memory: MemoryConfig{
			SessionService: SessionServiceConfig{
				MaxSessions:    100,
				MaxCheckpoints: 50,
			},
			MemoryBank: MemoryBankConfig{
				Enabled:       true,
				StorageEngine: "sqlite",
				DSN:           "./data/memory_bank.db",
			},
			Compaction: CompactionConfig{
				Enabled:        true,
				MaxContextSize: 100000,
			},
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "qwen2.5:7b",
			EmbeddingModel: "nomic-embed-text",
			OpenAIModel:    "gpt-4",
			AnthropicModel: "claude-3-5-sonnet-20241022",
		},
		Tools: ToolsConfig{
			Search: SearchToolConfig{Enabled: true},
			FDA: APIToolConfig{
				Enabled: true,
				BaseURL: "https://api.fda.gov",
			},
			ClinicalTrials: APIToolConfig{
				Enabled: true,
				BaseURL: "https://clinicaltrials.gov/api/v2",
			},
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    7351,
			Host:    "127.0.0.1",
		},
		Security: SecurityConfig{
			Mode: "development",
		},
		Evaluation: EvaluationConfig{
			Enabled: true,
			Metrics: []string{"accuracy", "completeness", "timeliness", "relevance"},
		},
	}
}

// applyEnvOverrides overlays PHARMASCOPE_-prefixed environment variables on
// top of the file/default values.
func applyEnvOverrides(cfg *Config) {
	cfg.Memory.SessionService.MaxSessions = getEnvInt("PHARMASCOPE_MAX_SESSIONS", cfg.Memory.SessionService.MaxSessions)
	cfg.Memory.MemoryBank.Enabled = getEnvBool("PHARMASCOPE_MEMORY_ENABLED", cfg.Memory.MemoryBank.Enabled)
	cfg.Memory.MemoryBank.StorageEngine = getEnv("PHARMASCOPE_STORAGE_ENGINE", cfg.Memory.MemoryBank.StorageEngine)
	cfg.Memory.MemoryBank.DSN = getEnv("PHARMASCOPE_STORAGE_DSN", cfg.Memory.MemoryBank.DSN)
	cfg.Memory.Compaction.MaxContextSize = getEnvInt("PHARMASCOPE_MAX_CONTEXT_SIZE", cfg.Memory.Compaction.MaxContextSize)

	cfg.LLM.Provider = getEnv("PHARMASCOPE_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.OllamaURL = getEnv("PHARMASCOPE_OLLAMA_URL", cfg.LLM.OllamaURL)
	cfg.LLM.OllamaModel = getEnv("PHARMASCOPE_OLLAMA_MODEL", cfg.LLM.OllamaModel)
	cfg.LLM.EmbeddingModel = getEnv("PHARMASCOPE_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.OpenAIAPIKey = getEnv("PHARMASCOPE_OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.AnthropicAPIKey = getEnv("PHARMASCOPE_ANTHROPIC_API_KEY", cfg.LLM.AnthropicAPIKey)

	cfg.Tools.Search.APIKey = getEnv("PHARMASCOPE_SEARCH_API_KEY", cfg.Tools.Search.APIKey)
	cfg.Tools.Search.EngineID = getEnv("PHARMASCOPE_SEARCH_ENGINE_ID", cfg.Tools.Search.EngineID)

	cfg.Server.Port = getEnvInt("PHARMASCOPE_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("PHARMASCOPE_HOST", cfg.Server.Host)
	cfg.Security.Mode = getEnv("PHARMASCOPE_SECURITY_MODE", cfg.Security.Mode)
	cfg.Security.APIToken = getEnv("PHARMASCOPE_API_TOKEN", cfg.Security.APIToken)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values return the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
		return true
	case "false", "0", "no", "False", "FALSE", "No", "NO":
		return false
	}
	return defaultValue
}
