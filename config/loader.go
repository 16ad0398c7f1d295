package config

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Extract     ExtractConfig
	API         APIConfig         `mapstructure:"api"`
	Store       StoreConfig       `mapstructure:"store"`
	Vaccination VaccinationConfig `mapstructure:"vaccination"`
	Log         LogConfig         `mapstructure:"log"`
	Env         string
}

type ExtractConfig struct {
	Backoff BackoffConfig
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

// APIConfig points at the remote epidemiological API.
// APIKey is optional; HEALTH_API_KEY in the environment takes precedence.
type APIConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// StoreConfig selects the relational store. Driver is "duckdb" or "mysql".
// For duckdb only Path and ConnInitFnQueries are used; an empty Path or
// ":memory:" opens an in-memory database.
type StoreConfig struct {
	Driver            string   `mapstructure:"driver"`
	Path              string   `mapstructure:"path"`
	Host              string   `mapstructure:"host"`
	Port              int      `mapstructure:"port"`
	User              string   `mapstructure:"user"`
	Password          string   `mapstructure:"password"`
	Database          string   `mapstructure:"database"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
	SchemaFile        string   `mapstructure:"schema_file"`
}

type VaccinationConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extract.backoff.retry_wait_min", time.Second)
	v.SetDefault("extract.backoff.retry_wait_max", 30*time.Second)
	v.SetDefault("extract.backoff.retry_max", 3)
	v.SetDefault("store.driver", "duckdb")
	v.SetDefault("store.schema_file", "create_tables.sql")
	v.SetDefault("vaccination.csv_path", "vaccinations.csv")
	v.SetDefault("log.level", "info")
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" {
		env = "dev"
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(baseConfigReader); err != nil {
		return nil, fmt.Errorf("error reading base config: %w", err)
	}

	// Merge with environment-specific configuration (only if provided)
	if envConfigReader != nil {
		if err := v.MergeConfig(envConfigReader); err != nil {
			log.Printf("Error merging environment-specific config: %s", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Env = env

	return &config, nil
}
