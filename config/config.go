package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Nested groups are looked up by the full variable name in each field tag
	// (envconfig falls back to the tag when the prefixed key is unset).
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Reconcile ReconcileConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"` // takes precedence over individual vars
	Host        string `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port        string `envconfig:"DB_PORT" default:"3306"`
	User        string `envconfig:"DB_USER" default:"root"`
	Password    string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"cmrp"`
}

// AuthConfig holds token and bootstrap-admin settings
type AuthConfig struct {
	JWTSecret          string        `envconfig:"JWT_SECRET"`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	AdminUsername      string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword      string        `envconfig:"ADMIN_PASSWORD"`
	OfficerEmailDomain string        `envconfig:"OFFICER_EMAIL_DOMAIN" default:"cmrp.com"`
}

// StorageConfig selects where uploaded photos and documents go
type StorageConfig struct {
	Driver          string `envconfig:"STORAGE_DRIVER" default:"local"` // local | s3
	UploadBasePath  string `envconfig:"UPLOAD_BASE_PATH" default:"uploads"`
	UploadURLPrefix string `envconfig:"UPLOAD_URL_PREFIX" default:"/uploads"`
	S3Bucket        string `envconfig:"S3_BUCKET"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`
}

// RedisConfig holds the optional Redis connection used for fan-out and caching.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr              string        `envconfig:"REDIS_ADDR"`
	Password          string        `envconfig:"REDIS_PASSWORD"`
	DB                int           `envconfig:"REDIS_DB" default:"0"`
	AnalyticsCacheTTL time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"30s"`
}

// ReconcileConfig controls the background reconciliation worker (0 disables it)
type ReconcileConfig struct {
	Interval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"0"`
}

// LoadConfig loads configuration from environment variables.
// Supports DATABASE_URL or individual DB_* variables.
func LoadConfig() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// PORT (set by most PaaS hosts) wins over SERVER_PORT
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case "", "local":
		cfg.Storage.Driver = "local"
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return nil, fmt.Errorf("set S3_BUCKET when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("set JWT_SECRET")
		}
		cfg.Auth.JWTSecret = "cmrp-dev-secret"
	}

	if cfg.Reconcile.Interval < 0 {
		cfg.Reconcile.Interval = 0
	}

	return cfg, nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Addr is the host:port the HTTP server listens on
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// DSN builds the MySQL data source name (UTC, parsed times).
// DATABASE_URL may be a mysql:// URL or a driver DSN.
func (d DatabaseConfig) DSN() (string, error) {
	var mc *mysql.Config
	if d.DatabaseURL != "" {
		parsed, err := parseDatabaseURL(d.DatabaseURL)
		if err != nil {
			return "", err
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%s", d.Host, d.Port)
		mc.DBName = d.DBName
	}

	mc.ParseTime = true
	mc.Loc = time.UTC
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	mc.Params["charset"] = "utf8mb4"

	return mc.FormatDSN(), nil
}

func parseDatabaseURL(raw string) (*mysql.Config, error) {
	if !strings.HasPrefix(raw, "mysql://") {
		mc, err := mysql.ParseDSN(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		return mc, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = u.Host
	if u.Port() == "" {
		mc.Addr = u.Host + ":3306"
	}
	mc.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	return mc, nil
}
