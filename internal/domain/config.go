package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	// Dir is where working files and finished downloads live.
	Dir string `mapstructure:"dir"`

	// MaxRetries is the per-URL budget of consecutive worker failures
	// tolerated before the record is marked permanently failed.
	MaxRetries int `mapstructure:"max_retries"`

	// ReportInterval is how often a worker persists a progress snapshot.
	ReportInterval time.Duration `mapstructure:"report_interval"`

	// RequestTimeout bounds the initial HTTP response; zero disables it.
	// Transfers themselves are not time-bounded.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	UserAgent string `mapstructure:"user_agent"`
}

// StoreConfig contains progress store configuration
type StoreConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			Dir:            "$HOME/Downloads/fetchd",
			MaxRetries:     24,
			ReportInterval: time.Second,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "fetchd/1.0",
		},
		Store: StoreConfig{
			DatabasePath: "$HOME/Downloads/fetchd/.fetchd/progress.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
