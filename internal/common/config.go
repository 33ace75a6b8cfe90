package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the immutable application configuration. It is built once at
// process start (defaults -> config files -> environment -> CLI flags) and
// passed by reference into every service; nothing reads configuration
// ambiently after startup.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Ingest      IngestConfig    `toml:"ingest"`
	Remote      RemoteConfig    `toml:"remote"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig contains storage backend settings
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB settings
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

// CrawlerConfig contains web crawl settings
type CrawlerConfig struct {
	UserAgent      string        `toml:"user_agent"`
	RequestDelay   time.Duration `toml:"request_delay"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxBodySize    int           `toml:"max_body_size"`
	MaxPages       int           `toml:"max_pages"`
}

// EmbeddingConfig tunes the embedding service.
type EmbeddingConfig struct {
	BatchSize  int `toml:"batch_size"`
	Dimensions int `toml:"dimensions"`
}

// GeminiConfig contains Google Gemini API settings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	EmbedModel  string  `toml:"embed_model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API settings
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMConfig contains cross-provider LLM settings
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"`
}

// IngestConfig contains build pipeline settings
type IngestConfig struct {
	Workers           int           `toml:"workers"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`
	StaleAfter        time.Duration `toml:"stale_after"`
	StaleSweepCron    string        `toml:"stale_sweep_cron"`
}

// RemoteConfig points at the managed vector index / search backend.
type RemoteConfig struct {
	VectorURL string `toml:"vector_url"`
	SearchURL string `toml:"search_url"`
	APIKey    string `toml:"api_key"`
	Timeout   string `toml:"timeout"`
}

// WebSocketConfig contains event feed settings
type WebSocketConfig struct {
	MinLevel         string `toml:"min_level"`
	ThrottleInterval string `toml:"throttle_interval"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/inquiro",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"console", "file"},
		},
		Crawler: CrawlerConfig{
			UserAgent:      "inquiro/1.0 (+https://github.com/harborlight/inquiro)",
			RequestDelay:   1 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
			MaxPages:       500,
		},
		Embedding: EmbeddingConfig{
			BatchSize:  16,
			Dimensions: 768,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			EmbedModel:  "gemini-embedding-001",
			Timeout:     "5m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
		},
		Ingest: IngestConfig{
			Workers:           2,
			HeartbeatInterval: 15 * time.Second,
			StaleAfter:        5 * time.Minute,
			StaleSweepCron:    "*/2 * * * *",
		},
		Remote: RemoteConfig{
			Timeout: "30s",
		},
		WebSocket: WebSocketConfig{
			MinLevel:         "info",
			ThrottleInterval: "1s",
		},
	}
}

// LoadFromFiles loads configuration from TOML files in order; later files
// override earlier ones, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies INQUIRO_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INQUIRO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("INQUIRO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("INQUIRO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if badgerPath := os.Getenv("INQUIRO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("INQUIRO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("INQUIRO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("INQUIRO_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if delay := os.Getenv("INQUIRO_CRAWLER_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Crawler.RequestDelay = d
		}
	}
	if timeout := os.Getenv("INQUIRO_CRAWLER_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Crawler.RequestTimeout = d
		}
	}

	if batch := os.Getenv("INQUIRO_EMBEDDING_BATCH_SIZE"); batch != "" {
		if b, err := strconv.Atoi(batch); err == nil && b > 0 {
			config.Embedding.BatchSize = b
		}
	}
	if dims := os.Getenv("INQUIRO_EMBEDDING_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil && d > 0 {
			config.Embedding.Dimensions = d
		}
	}

	// API keys follow each provider's conventional variable first
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("INQUIRO_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("INQUIRO_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if provider := os.Getenv("INQUIRO_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}

	if workers := os.Getenv("INQUIRO_INGEST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Ingest.Workers = w
		}
	}

	if url := os.Getenv("INQUIRO_REMOTE_VECTOR_URL"); url != "" {
		config.Remote.VectorURL = url
	}
	if url := os.Getenv("INQUIRO_REMOTE_SEARCH_URL"); url != "" {
		config.Remote.SearchURL = url
	}
	if key := os.Getenv("INQUIRO_REMOTE_API_KEY"); key != "" {
		config.Remote.APIKey = key
	}
}

// ApplyFlagOverrides applies CLI flag values on top of the loaded config.
// Zero values mean "flag not set".
func (c *Config) ApplyFlagOverrides(host string, port int, logLevel string, badgerPath string) {
	if host != "" {
		c.Server.Host = host
	}
	if port > 0 {
		c.Server.Port = port
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if badgerPath != "" {
		c.Storage.Badger.Path = badgerPath
	}
}

// ListenAddr returns the host:port the HTTP server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
