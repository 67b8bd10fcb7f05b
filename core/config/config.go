package config

import (
	"reflect"
	"strings"

	"license-reconciler/core/database"
	"license-reconciler/core/logger"
	"license-reconciler/core/server"
	"license-reconciler/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Storage holds configuration for the snapshot archive storage.
	Storage storage.Config `mapstructure:"storage"`
	// External holds configuration for the third-party license API.
	External External `mapstructure:"external"`
	// Sync holds the reconciliation engine options.
	Sync Sync `mapstructure:"sync"`
	// Breaker holds the circuit breaker settings for external API calls.
	Breaker Breaker `mapstructure:"breaker"`
	// Retry holds the retry policy settings for external API calls.
	Retry Retry `mapstructure:"retry"`
}

// External holds configuration for the third-party license API client.
type External struct {
	// BaseURL is the root URL of the external license API.
	BaseURL string `mapstructure:"base_url" default:""`
	// ApiKey is the bearer token for the external API.
	ApiKey string `mapstructure:"api_key" default:""`
	// TimeoutSeconds is the per-request HTTP timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Sync holds the reconciliation engine options.
// Thresholds and batch heuristics are business policy defaults, kept
// configurable rather than hard-coded.
type Sync struct {
	// BatchSize is the number of records per batch.
	BatchSize int `mapstructure:"batch_size" default:"100"`
	// ConcurrencyLimit is the maximum number of batches processed in parallel.
	ConcurrencyLimit int `mapstructure:"concurrency_limit" default:"5"`
	// InnerConcurrency bounds per-record workers inside a batch.
	InnerConcurrency int `mapstructure:"inner_concurrency" default:"4"`
	// SmallRunBatches is the batch count at or below which concurrency is capped at 2.
	SmallRunBatches int `mapstructure:"small_run_batches" default:"3"`
	// LargeRunBatches is the batch count above which concurrency may grow to 8.
	LargeRunBatches int `mapstructure:"large_run_batches" default:"50"`
	// TimeoutSeconds bounds a whole sync run.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"300"`
	// AutoThreshold is the minimum confidence score for automatic consolidation.
	AutoThreshold int `mapstructure:"auto_threshold" default:"90"`
	// ReviewThreshold is the minimum confidence score for manual review routing.
	ReviewThreshold int `mapstructure:"review_threshold" default:"70"`
	// FuzzyRatio is the normalized Levenshtein similarity required for a
	// fuzzy DBA match.
	FuzzyRatio float64 `mapstructure:"fuzzy_ratio" default:"0.85"`
	// Comprehensive enables the full duplicate analysis passes on every sync.
	Comprehensive bool `mapstructure:"comprehensive" default:"false"`
	// Bidirectional is recognized but reserved; the external API offers no
	// write endpoint, so internal changes are never pushed back.
	Bidirectional bool `mapstructure:"bidirectional" default:"false"`
	// DryRun computes every decision without persisting anything.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// SnapshotArchive enables archiving raw fetch payloads to object storage.
	SnapshotArchive bool `mapstructure:"snapshot_archive" default:"false"`
	// Schedule is a cron expression for periodic syncs. Empty disables them.
	Schedule string `mapstructure:"schedule" default:""`
}

// Breaker holds the circuit breaker settings.
type Breaker struct {
	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold int `mapstructure:"failure_threshold" default:"5"`
	// CooldownSeconds is how long the breaker stays open before probing.
	CooldownSeconds int `mapstructure:"cooldown_seconds" default:"60"`
}

// Retry holds the retry policy settings.
type Retry struct {
	// BaseMs is the base backoff delay in milliseconds.
	BaseMs int `mapstructure:"base_ms" default:"1000"`
	// CapMs is the maximum backoff delay in milliseconds.
	CapMs int `mapstructure:"cap_ms" default:"30000"`
	// MaxRetries is the maximum number of retries per call.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// Load .env file if it exists. Ignore error if it doesn't (production).
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SYNC_BATCH_SIZE -> sync.batch_size)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
