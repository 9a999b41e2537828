// Package config assembles process settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// #region types
// Config holds every tunable of the report daemon and its tools.
type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	HealthAddr string `yaml:"health_addr"`

	DBPath       string `yaml:"db_path"`
	DraftBackend string `yaml:"draft_backend"` // sqlite | redis | memory
	DraftKey     string `yaml:"draft_key"`
	DraftHistory int    `yaml:"draft_history"`
	RedisAddress string `yaml:"redis_address"`

	ReportServiceURL     string        `yaml:"report_service_url"`
	ReportServiceTimeout time.Duration `yaml:"report_service_timeout"`

	DownloadDir string        `yaml:"download_dir"`
	FilePrefix  string        `yaml:"file_prefix"`
	NoticeTTL   time.Duration `yaml:"notice_ttl"`

	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	CORSOrigins []string `yaml:"cors_origins"`
}
// #endregion types

// #region defaults
// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		HealthAddr:           "",
		DBPath:               "reports.db",
		DraftBackend:         "sqlite",
		DraftKey:             "ldpr-report-draft",
		DraftHistory:         50,
		RedisAddress:         "localhost:6379",
		ReportServiceURL:     "http://localhost:8000/",
		ReportServiceTimeout: 60 * time.Second,
		DownloadDir:          "downloads",
		FilePrefix:           "ldpr_report",
		NoticeTTL:            5 * time.Second,
		LogLevel:             "info",
		LogFormat:            "json",
		CORSOrigins:          []string{"*"},
	}
}
// #endregion defaults

// #region load
// Load builds the configuration. path names an optional YAML file; a missing
// file is not an error when path is empty. A .env file in the working
// directory is loaded if present and never overrides variables already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.HealthAddr = envOr("HEALTH_ADDR", cfg.HealthAddr)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.DraftBackend = envOr("DRAFT_BACKEND", cfg.DraftBackend)
	cfg.DraftKey = envOr("DRAFT_KEY", cfg.DraftKey)
	cfg.RedisAddress = envOr("REDIS_ADDRESS", cfg.RedisAddress)
	cfg.ReportServiceURL = envOr("REPORT_SERVICE_URL", cfg.ReportServiceURL)
	cfg.DownloadDir = envOr("DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.FilePrefix = envOr("FILE_PREFIX", cfg.FilePrefix)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)

	if v := os.Getenv("DRAFT_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DraftHistory = n
		}
	}
	if v := os.Getenv("REPORT_SERVICE_TIMEOUT"); v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.ReportServiceTimeout = d
		}
	}
	if v := os.Getenv("NOTICE_TTL"); v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.NoticeTTL = d
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
}
// #endregion load

// #region validate
// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	switch c.DraftBackend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown draft backend %q", c.DraftBackend)
	}
	if c.FilePrefix == "" {
		return errors.New("file prefix must not be empty")
	}
	if c.ReportServiceTimeout <= 0 {
		return errors.New("report service timeout must be positive")
	}
	return nil
}
// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseDuration accepts Go durations ("90s") and bare seconds ("90").
func parseDuration(v string) (time.Duration, bool) {
	if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second, true
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
// #endregion helpers
