package domain

import "time"

// Config holds the complete MuleCatcher configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Analyzer determines where scoring happens
	Analyzer AnalyzerConfig `json:"analyzer"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// AnalyzerMode selects the scoring backend.
type AnalyzerMode string

const (
	// ModeRemote posts the staged file to an external scoring service.
	ModeRemote AnalyzerMode = "remote"

	// ModeEmbedded mounts the detection engine in-process and routes the
	// analysis call to it. Used for demo and offline deployments.
	ModeEmbedded AnalyzerMode = "embedded"
)

// AnalyzerConfig holds scoring service settings.
type AnalyzerConfig struct {
	Mode AnalyzerMode `json:"mode"`

	// URL of the remote scoring service (remote mode).
	URL string `json:"url"`

	// TimeoutSecs bounds one analysis request end to end.
	TimeoutSecs int `json:"timeoutSecs"`

	// CacheTTLSecs bounds how long a scoring response is reused for an
	// identical file. Zero disables response caching.
	CacheTTLSecs int `json:"cacheTtlSecs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// MaxUploadBytes caps the staged file size.
	MaxUploadBytes int64 `json:"maxUploadBytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns a configuration suitable for a single-node
// deployment: SQLite, in-memory cache, channel bus, embedded analyzer.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30,
			WriteTimeout:   60,
			MaxUploadBytes: 32 << 20,
		},
		Analyzer: AnalyzerConfig{
			Mode:         ModeEmbedded,
			TimeoutSecs:  120,
			CacheTTLSecs: 600,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./mulecatcher.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "mulecatcher",
		},
	}
}

// ClusterConfig returns a configuration for a multi-node deployment:
// PostgreSQL, two-phase Redis cache, NATS bus, remote scoring service.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Analyzer = AnalyzerConfig{
		Mode:         ModeRemote,
		URL:          "http://localhost:8000",
		TimeoutSecs:  120,
		CacheTTLSecs: 600,
	}
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "mulecatcher",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
