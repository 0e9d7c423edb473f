package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location. COUNTRIES_CONFIG
// overrides it.
const ConfigPath = "config.yaml"

const (
	defaultPort                = "8080"
	defaultLogLevel            = "info"
	defaultFetchTimeoutSeconds = 10
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseURL"`
	LogLevel    string `yaml:"logLevel"`

	CountriesURL        string `yaml:"countriesURL"`
	RatesURL            string `yaml:"ratesURL"`
	FetchTimeoutSeconds int    `yaml:"fetchTimeoutSeconds"`

	RedisAddr                 string `yaml:"redisAddr"`
	RedisPassword             string `yaml:"redisPassword"`
	RefreshRateLimitPerMinute int    `yaml:"refreshRateLimitPerMinute"`
	EventStream               string `yaml:"eventStream"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AdminJWTKeyID            string `yaml:"adminJwtKeyId"`
	AdminJWTPublicKeyPath    string `yaml:"adminJwtPublicKeyPath"`
	AdminJWTPrivateKeyPath   string `yaml:"adminJwtPrivateKeyPath"`
	AdminJWTVerifyPublicKeys string `yaml:"adminJwtVerifyPublicKeys"`

	TrustedProxies []string `yaml:"trustedProxies"`
}

// FetchTimeout returns the per-call upstream timeout.
func (c FileConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// AdminAuthEnabled reports whether mutating endpoints require a token.
func (c FileConfig) AdminAuthEnabled() bool {
	return c.AdminJWTPublicKeyPath != "" || c.AdminJWTVerifyPublicKeys != ""
}

// ResolvePath picks the config file: explicit path, then COUNTRIES_CONFIG,
// then ConfigPath.
func ResolvePath(path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	if v := strings.TrimSpace(os.Getenv("COUNTRIES_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path. A missing file at the default location is
// not an error, so the service can run from environment variables alone.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	explicit := strings.TrimSpace(path) != "" || strings.TrimSpace(os.Getenv("COUNTRIES_CONFIG")) != ""
	path = ResolvePath(path)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.CountriesURL, "COUNTRIES_API_URL")
	setString(&cfg.RatesURL, "RATES_API_URL")
	setInt(&cfg.FetchTimeoutSeconds, "FETCH_TIMEOUT_SECONDS")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.RefreshRateLimitPerMinute, "REFRESH_RATE_LIMIT_PER_MINUTE")
	setString(&cfg.EventStream, "EVENT_STREAM")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	setString(&cfg.AdminJWTKeyID, "ADMIN_JWT_KEY_ID")
	setString(&cfg.AdminJWTPublicKeyPath, "ADMIN_JWT_PUBLIC_KEY_PATH")
	setString(&cfg.AdminJWTPrivateKeyPath, "ADMIN_JWT_PRIVATE_KEY_PATH")
	setString(&cfg.AdminJWTVerifyPublicKeys, "ADMIN_JWT_VERIFY_PUBLIC_KEYS")
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.FetchTimeoutSeconds == 0 {
		cfg.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.FetchTimeoutSeconds < 0 {
		return errors.New("config: fetchTimeoutSeconds must be positive")
	}
	if cfg.RefreshRateLimitPerMinute < 0 {
		return errors.New("config: refreshRateLimitPerMinute must not be negative")
	}
	if cfg.RefreshRateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when refreshRateLimitPerMinute is set")
	}
	if cfg.MinioEndpoint != "" {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return errors.New("config: minioAccessKey and minioSecretKey are required when minioEndpoint is set")
		}
		if cfg.MinioBucket == "" {
			return errors.New("config: minioBucket is required when minioEndpoint is set")
		}
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
