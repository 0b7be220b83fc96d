package config

import "time"

// Config represents the main configuration structure.
type Config struct {
	Detection DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Anonymize AnonymizeConfig `yaml:"anonymize" mapstructure:"anonymize"`
	Files     FilesConfig     `yaml:"files" mapstructure:"files"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Vault     VaultConfig     `yaml:"vault" mapstructure:"vault"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// DetectionConfig tunes the column scanner.
type DetectionConfig struct {
	SampleSize  int     `yaml:"sample_size" mapstructure:"sample_size"`
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	HintEpsilon float64 `yaml:"hint_epsilon" mapstructure:"hint_epsilon"`
}

// AnonymizeConfig tunes pseudonym generation. The KDF parameters are
// deliberately absent: they are format constants, not configuration.
type AnonymizeConfig struct {
	Padding int `yaml:"padding" mapstructure:"padding"`
}

// FilesConfig bounds the file collaborators.
type FilesConfig struct {
	MaxSizeMB         int      `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RequestsPerMin int           `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// CacheConfig contains the optional Redis scan-profile cache settings.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// VaultConfig contains the optional Postgres mapping-vault settings.
type VaultConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults.
func GetDefaults() *Config {
	return &Config{
		Detection: DetectionConfig{
			SampleSize:  100,
			Threshold:   0.10,
			HintEpsilon: 0.01,
		},
		Anonymize: AnonymizeConfig{
			Padding: 3,
		},
		Files: FilesConfig{
			MaxSizeMB:         10,
			AllowedExtensions: []string{".xlsx", ".csv"},
		},
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestsPerMin: 60,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "safeshare",
		},
		Vault: VaultConfig{
			Enabled:         false,
			DatabaseURL:     "postgres://localhost:5432/safeshare?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
