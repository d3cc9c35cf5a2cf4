package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Storage StorageConfig
	Files   FilesConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// StorageConfig describes the record store database.
type StorageConfig struct {
	// Path is the SQLite database file location.
	Path string

	// StrictDecode surfaces undecodable mapping columns as read errors
	// instead of degrading them to empty mappings.
	StrictDecode bool
}

// FilesConfig governs the file store.
type FilesConfig struct {
	// DefaultRoot is the root path the registry starts with.
	DefaultRoot string

	// MaxUploadBytes is the per-file upload size limit.
	MaxUploadBytes int64
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultMaxUploadBytes  = 10 << 20 // 10 MiB

	defaultRootDirName = "docstore_files"
	defaultDBFilename  = "docstore.db"
)

// DefaultRootPath returns the root directory used when none is
// configured: a fixed subdirectory of the system temp directory.
func DefaultRootPath() string {
	return filepath.Join(os.TempDir(), defaultRootDirName)
}

// fileConfig mirrors Config for the optional YAML configuration file.
type fileConfig struct {
	HTTP struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		AllowedOrigins  string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Storage struct {
		Path         string `yaml:"path"`
		StrictDecode *bool  `yaml:"strict_decode"`
	} `yaml:"storage"`
	Files struct {
		DefaultRoot    string `yaml:"default_root"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"files"`
	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		IncludeCaller *bool  `yaml:"include_caller"`
	} `yaml:"logging"`
}

// Load builds the configuration from defaults, an optional YAML file
// named by DOCSTORE_CONFIG, and environment variables, in increasing
// order of precedence.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Storage: StorageConfig{
			Path: filepath.Join(DefaultRootPath(), defaultDBFilename),
		},
		Files: FilesConfig{
			DefaultRoot:    DefaultRootPath(),
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}

	if path := os.Getenv("DOCSTORE_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.HTTP.Host != "" {
		cfg.HTTP.Host = fc.HTTP.Host
	}
	if fc.HTTP.Port != 0 {
		cfg.HTTP.Port = fc.HTTP.Port
	}
	for _, field := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.HTTP.ReadTimeout, &cfg.HTTP.ReadTimeout},
		{fc.HTTP.WriteTimeout, &cfg.HTTP.WriteTimeout},
		{fc.HTTP.IdleTimeout, &cfg.HTTP.IdleTimeout},
		{fc.HTTP.ShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
	} {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q in %s: %w", field.raw, path, err)
		}
		*field.dst = d
	}
	if fc.HTTP.AllowedOrigins != "" {
		cfg.HTTP.AllowedOriginsCSV = fc.HTTP.AllowedOrigins
	}
	if fc.Storage.Path != "" {
		cfg.Storage.Path = fc.Storage.Path
	}
	if fc.Storage.StrictDecode != nil {
		cfg.Storage.StrictDecode = *fc.Storage.StrictDecode
	}
	if fc.Files.DefaultRoot != "" {
		cfg.Files.DefaultRoot = fc.Files.DefaultRoot
	}
	if fc.Files.MaxUploadBytes != 0 {
		cfg.Files.MaxUploadBytes = fc.Files.MaxUploadBytes
	}
	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Logging.Format != "" {
		cfg.Logging.Format = fc.Logging.Format
	}
	if fc.Logging.IncludeCaller != nil {
		cfg.Logging.IncludeCaller = *fc.Logging.IncludeCaller
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)

	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return err
	}
	cfg.HTTP.Port = port

	for _, field := range []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
	} {
		v := os.Getenv(field.key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field.key, err)
		}
		*field.dst = d
	}

	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)

	cfg.Storage.Path = valueOrDefault("DOCSTORE_DB_PATH", cfg.Storage.Path)
	cfg.Storage.StrictDecode = parseBoolWithDefault("DOCSTORE_STRICT_DECODE", cfg.Storage.StrictDecode)

	cfg.Files.DefaultRoot = valueOrDefault("DOCSTORE_ROOT_PATH", cfg.Files.DefaultRoot)
	if v := os.Getenv("DOCSTORE_MAX_UPLOAD_BYTES"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil || size <= 0 {
			return fmt.Errorf("invalid DOCSTORE_MAX_UPLOAD_BYTES value %q", v)
		}
		cfg.Files.MaxUploadBytes = size
	}

	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)

	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
