// Package config loads service and CLI settings from an optional YAML file
// and the environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Output
	OutputDir string `yaml:"output_dir"`

	// Local structuring oracle (Ollama)
	LocalURL     string        `yaml:"local_oracle_url"`
	LocalModel   string        `yaml:"local_oracle_model"`
	LocalTimeout time.Duration `yaml:"local_oracle_timeout"`

	// Remote structuring oracle
	RemoteProvider string        `yaml:"remote_provider"`
	RemoteAPIKey   string        `yaml:"remote_api_key"`
	RemoteBaseURL  string        `yaml:"remote_base_url"`
	RemoteModel    string        `yaml:"remote_model"`
	RemoteTimeout  time.Duration `yaml:"remote_timeout"`

	// Extraction
	IdentityPrefixLines int `yaml:"identity_prefix_lines"`
	MinTables           int `yaml:"min_tables"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Optional pathstore publishing
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`
	PathstorePrefix string `yaml:"pathstore_prefix"`

	// Logging and stats
	LogFormat   string        `yaml:"log_format"`
	LogLevel    string        `yaml:"log_level"`
	StatsWindow time.Duration `yaml:"stats_window"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		OutputDir:            "output/json",
		LocalURL:             "http://localhost:11434",
		LocalModel:           "qwen2.5:7b",
		LocalTimeout:         300 * time.Second,
		RemoteProvider:       "deepseek",
		RemoteTimeout:        120 * time.Second,
		IdentityPrefixLines:  800,
		MinTables:            2,
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               1 * time.Hour,
		PDFFallbackPdftotext: true,
		PathstorePrefix:      "curriculum",
		LogFormat:            "json",
		LogLevel:             "info",
		StatsWindow:          1 * time.Hour,
	}
}

// Load reads the file named by SYLLABUS_CONFIG, if any, then the environment.
func Load() (Config, error) {
	return LoadFile(os.Getenv("SYLLABUS_CONFIG"))
}

// LoadFile applies the YAML file at path (skipped when empty) over the
// defaults, then environment overrides, then clamps invalid values.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("SYLLABUS_API_KEY", cfg.APIKey)
	cfg.OutputDir = envOr("OUTPUT_DIR", cfg.OutputDir)

	cfg.LocalURL = envOr("LOCAL_ORACLE_URL", cfg.LocalURL)
	cfg.LocalModel = envOr("LOCAL_ORACLE_MODEL", cfg.LocalModel)
	cfg.LocalTimeout = envDuration("LOCAL_ORACLE_TIMEOUT", cfg.LocalTimeout)

	cfg.RemoteProvider = strings.ToLower(envOr("REMOTE_PROVIDER", cfg.RemoteProvider))
	cfg.RemoteAPIKey = envOr("REMOTE_API_KEY", cfg.RemoteAPIKey)
	cfg.RemoteBaseURL = envOr("REMOTE_BASE_URL", cfg.RemoteBaseURL)
	cfg.RemoteModel = envOr("REMOTE_MODEL", cfg.RemoteModel)
	cfg.RemoteTimeout = envDuration("REMOTE_TIMEOUT", cfg.RemoteTimeout)

	cfg.IdentityPrefixLines = envInt("IDENTITY_PREFIX_LINES", cfg.IdentityPrefixLines)
	cfg.MinTables = envInt("MIN_TABLES", cfg.MinTables)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)
	cfg.PathstorePrefix = envOr("PATHSTORE_PREFIX", cfg.PathstorePrefix)

	cfg.LogFormat = strings.ToLower(envOr("LOG_FORMAT", cfg.LogFormat))
	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", cfg.LogLevel))
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	d := Defaults()
	if c.LocalTimeout <= 0 {
		c.LocalTimeout = d.LocalTimeout
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = d.RemoteTimeout
	}
	if c.IdentityPrefixLines <= 0 {
		c.IdentityPrefixLines = d.IdentityPrefixLines
	}
	if c.MinTables <= 0 {
		c.MinTables = d.MinTables
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
}

// RemoteEnabled reports whether a remote oracle is configured.
func (c Config) RemoteEnabled() bool {
	return c.RemoteProvider != "" && c.RemoteProvider != "off" && c.RemoteAPIKey != ""
}

// PathstoreEnabled reports whether records are also published to pathstore.
func (c Config) PathstoreEnabled() bool {
	return c.PathstoreURL != ""
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.LocalURL == "" || c.LocalModel == "" {
		return fmt.Errorf("LOCAL_ORACLE_URL and LOCAL_ORACLE_MODEL are required")
	}
	switch c.RemoteProvider {
	case "", "off", "deepseek", "openai", "gemini", "anthropic":
	default:
		return fmt.Errorf("unknown REMOTE_PROVIDER %q", c.RemoteProvider)
	}
	if c.PathstoreEnabled() && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// ValidateServer additionally checks the settings of the HTTP service.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("SYLLABUS_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
