package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clearData  bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-management",
	Short: "Invoice Management",
	Long:  `For tracking invoices from upload and text extraction through approval and payment.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		useNumericAmounts()
	},
}

// useNumericAmounts makes stored blobs and API responses carry amounts as
// JSON numbers.
func useNumericAmounts() {
	decimal.MarshalJSONWithoutQuotes = true
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// a missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	logger.Configure(cfg.Env, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

func readConfig(path string) (*internal.Config, error) {
	// Docker and production deployments are configured through the environment only
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg, err := internal.LoadConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("error loading config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		slog.Warn("config.yml not found, using defaults", "path", path)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors the envconfig defaults so a partial config.yml behaves
// like the environment loader.
func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"env": "development",

		"http_server.port":                8080,
		"http_server.allowed_origins":     "*",
		"http_server.read_header_timeout": "5s",
		"http_server.read_timeout":        "30s",
		"http_server.idle_timeout":        "60s",
		"http_server.write_timeout":       "60s",

		"storage.driver":            internal.StorageDriverBolt,
		"storage.path":              "data/invoices.db",
		"storage.bucket":            "invoices",
		"storage.max_open_conns":    10,
		"storage.max_idle_conns":    5,
		"storage.conn_max_lifetime": "30m",
		"storage.open_timeout":      "1s",

		"upload.driver":          internal.UploadDriverLocal,
		"upload.bucket":          "invoices",
		"upload.timeout":         "30s",
		"upload.local_dir":       "data/files",
		"upload.public_base_url": "http://localhost:8080/files",
		"upload.max_file_size":   10 << 20,

		"extraction.provider": internal.ExtractionProviderNone,
		"extraction.location": "us",
		"extraction.timeout":  "60s",

		"security.issuer":    "invoice-management",
		"security.token_ttl": "1h",

		"events.exchange": "invoices",

		"observability.metrics.enabled": true,
		"observability.metrics.path":    "/metrics",
		"observability.logging.level":   "info",
		"observability.logging.format":  "text",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing invoices before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(extractCmd)
}
