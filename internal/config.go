package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env           string              `mapstructure:"env" envconfig:"APP_ENV" default:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"SERVER"`
	Storage       StorageConfig       `mapstructure:"storage" envconfig:"STORAGE"`
	Upload        UploadConfig        `mapstructure:"upload" envconfig:"UPLOAD"`
	Extraction    ExtractionConfig    `mapstructure:"extraction" envconfig:"EXTRACTION"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Events        EventsConfig        `mapstructure:"events" envconfig:"EVENTS"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT" default:"8080"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
}

const (
	StorageDriverBolt     = "bolt"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// StorageConfig selects the backend holding the serialized invoice collections.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver" envconfig:"DRIVER" default:"bolt"`
	Path            string        `mapstructure:"path" envconfig:"PATH" default:"data/invoices.db"`
	Bucket          string        `mapstructure:"bucket" envconfig:"BUCKET" default:"invoices"`
	Source          string        `mapstructure:"source" envconfig:"SOURCE"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	OpenTimeout     time.Duration `mapstructure:"open_timeout" envconfig:"OPEN_TIMEOUT" default:"1s"`
}

const (
	UploadDriverHTTP  = "http"
	UploadDriverLocal = "local"
)

type UploadConfig struct {
	Driver        string        `mapstructure:"driver" envconfig:"DRIVER" default:"local"`
	BaseURL       string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	APIKey        string        `mapstructure:"api_key" envconfig:"API_KEY"`
	Bucket        string        `mapstructure:"bucket" envconfig:"BUCKET" default:"invoices"`
	Timeout       time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT" default:"30s"`
	LocalDir      string        `mapstructure:"local_dir" envconfig:"LOCAL_DIR" default:"data/files"`
	PublicBaseURL string        `mapstructure:"public_base_url" envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080/files"`
	MaxFileSize   int64         `mapstructure:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"10485760"`
}

const (
	ExtractionProviderVision     = "vision"
	ExtractionProviderDocumentAI = "documentai"
	ExtractionProviderHTTP       = "http"
	ExtractionProviderNone       = "none"
)

type ExtractionConfig struct {
	Provider        string        `mapstructure:"provider" envconfig:"PROVIDER" default:"none"`
	CredentialsFile string        `mapstructure:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	CredentialsJSON string        `mapstructure:"credentials_json" envconfig:"CREDENTIALS_JSON"`
	ProjectID       string        `mapstructure:"project_id" envconfig:"PROJECT_ID"`
	Location        string        `mapstructure:"location" envconfig:"LOCATION" default:"us"`
	ProcessorID     string        `mapstructure:"processor_id" envconfig:"PROCESSOR_ID"`
	Endpoint        string        `mapstructure:"endpoint" envconfig:"ENDPOINT"`
	APIKey          string        `mapstructure:"api_key" envconfig:"API_KEY"`
	Timeout         time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT" default:"60s"`
}

type SecurityConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	Issuer    string        `mapstructure:"issuer" envconfig:"ISSUER" default:"invoice-management"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" envconfig:"TOKEN_TTL" default:"1h"`
}

// EventsConfig enables forwarding of invoice lifecycle events to AMQP when AMQPURL is set.
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url" envconfig:"AMQP_URL"`
	Exchange string `mapstructure:"exchange" envconfig:"EXCHANGE" default:"invoices"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED" default:"true"`
	Path    string `mapstructure:"path" envconfig:"PATH" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL" default:"info"`
	Format string `mapstructure:"format" envconfig:"FORMAT" default:"text"`
}

// LoadConfigFromEnv reads the whole configuration from environment variables,
// e.g. SERVER_PORT, STORAGE_DRIVER, SECURITY_JWT_SECRET.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Upload.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("upload config: %v", err))
	}

	if err := c.Extraction.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("extraction config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageDriverBolt:
		if c.Path == "" {
			return errors.New("path is required for the bolt driver")
		}
		if c.Bucket == "" {
			return errors.New("bucket is required for the bolt driver")
		}
	case StorageDriverSQLite:
		if c.Source == "" && c.Path == "" {
			return errors.New("source or path is required for the sqlite driver")
		}
	case StorageDriverPostgres:
		if c.Source == "" {
			return errors.New("source is required for the postgres driver")
		}
		if c.MaxIdleConns > c.MaxOpenConns {
			return errors.New("max_idle_conns cannot be greater than max_open_conns")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// GetDSN returns the connection string for the SQL drivers, falling back to Path for sqlite.
func (c *StorageConfig) GetDSN() string {
	if c.Source == "" && c.Driver == StorageDriverSQLite {
		return c.Path
	}
	return c.Source
}

func (c *UploadConfig) Validate() error {
	switch c.Driver {
	case UploadDriverHTTP:
		if c.BaseURL == "" {
			return errors.New("base_url is required for the http driver")
		}
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
	case UploadDriverLocal:
		if c.LocalDir == "" {
			return errors.New("local_dir is required for the local driver")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.MaxFileSize <= 0 {
		return errors.New("max_file_size must be positive")
	}
	return nil
}

func (c *ExtractionConfig) Validate() error {
	switch c.Provider {
	case ExtractionProviderNone, ExtractionProviderVision:
	case ExtractionProviderDocumentAI:
		if c.ProjectID == "" || c.ProcessorID == "" {
			return errors.New("project_id and processor_id are required for documentai")
		}
	case ExtractionProviderHTTP:
		if c.Endpoint == "" {
			return errors.New("endpoint is required for the http provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
