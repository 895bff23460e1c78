// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// DBDriver selects the store: mysql, postgres or memory.
	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`

	// MySQL
	MySQLHost     string `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLPort     int    `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser     string `env:"MYSQL_USER" envDefault:"root"`
	MySQLPassword string `env:"MYSQL_PASSWORD" envDefault:""`
	MySQLDatabase string `env:"MYSQL_DATABASE" envDefault:"zeabur"`

	// PostgreSQL, required when DBDriver is postgres
	DatabaseURL string `env:"DATABASE_URL"`

	// Connection pool
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	StoreOpTimeout    time.Duration `env:"STORE_OP_TIMEOUT" envDefault:"5s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins; "*" allows all.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// Supported values for DB_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// mysqlConfig builds the driver config. Timestamps are read and written in UTC.
func (c *Config) mysqlConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = c.MySQLUser
	mc.Passwd = c.MySQLPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.MySQLHost, strconv.Itoa(c.MySQLPort))
	mc.DBName = c.MySQLDatabase
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc
}

// MySQLDSN returns the go-sql-driver/mysql DSN for the MySQL settings.
func (c *Config) MySQLDSN() string {
	return c.mysqlConfig().FormatDSN()
}

// DSN returns the connection string for the selected driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverMySQL:
		return c.MySQLDSN()
	case DriverPostgres:
		return c.DatabaseURL
	default:
		return ""
	}
}

// RedactedDSN returns DSN with any password masked, for logging.
func (c *Config) RedactedDSN() string {
	switch c.DBDriver {
	case DriverMySQL:
		mc := c.mysqlConfig()
		if mc.Passwd != "" {
			mc.Passwd = "xxxxx"
		}
		return mc.FormatDSN()
	case DriverPostgres:
		u, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return "[invalid database url]"
		}
		return u.Redacted()
	default:
		return c.DBDriver
	}
}

// DatabaseName reports the configured database name.
func (c *Config) DatabaseName() string {
	switch c.DBDriver {
	case DriverPostgres:
		if pc, err := pgconn.ParseConfig(c.DatabaseURL); err == nil {
			return pc.Database
		}
		return ""
	case DriverMemory:
		return DriverMemory
	default:
		return c.MySQLDatabase
	}
}

// DatabaseHost reports the configured database host.
func (c *Config) DatabaseHost() string {
	switch c.DBDriver {
	case DriverPostgres:
		if pc, err := pgconn.ParseConfig(c.DatabaseURL); err == nil {
			return pc.Host
		}
		return ""
	case DriverMemory:
		return "localhost"
	default:
		return c.MySQLHost
	}
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverMySQL, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of mysql, postgres, memory; got %q", c.DBDriver))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.DBDriver == DriverMySQL && (c.MySQLPort < 1 || c.MySQLPort > 65535) {
		errs = append(errs, fmt.Errorf("MYSQL_PORT out of range: %d", c.MySQLPort))
	}
	if c.StoreOpTimeout <= 0 {
		errs = append(errs, errors.New("STORE_OP_TIMEOUT must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	return load(nil)
}

// load parses environ, or the process environment when environ is nil.
func load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
