package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the facility and place files and describes their columns.
type InputConfig struct {
	Facilities      string        `yaml:"facilities" mapstructure:"facilities"`
	Places          []string      `yaml:"places" mapstructure:"places"`
	Encoding        string        `yaml:"encoding" mapstructure:"encoding"`
	FacilityColumns ColumnsConfig `yaml:"facility_columns" mapstructure:"facility_columns"`
	PlaceColumns    ColumnsConfig `yaml:"place_columns" mapstructure:"place_columns"`
	SheetName       string        `yaml:"sheet_name" mapstructure:"sheet_name"`
	SkipInvalidRows bool          `yaml:"skip_invalid_rows" mapstructure:"skip_invalid_rows"`
	HTTP            HTTPConfig    `yaml:"http" mapstructure:"http"`
}

// HTTPConfig configures downloads of inputs given as http(s) URLs.
type HTTPConfig struct {
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// ColumnsConfig maps record fields to header names in the source file.
type ColumnsConfig struct {
	ID         string `yaml:"id" mapstructure:"id"`
	Name       string `yaml:"name" mapstructure:"name"`
	Lat        string `yaml:"lat" mapstructure:"lat"`
	Lng        string `yaml:"lng" mapstructure:"lng"`
	Population string `yaml:"population" mapstructure:"population"`
}

// AggregateConfig configures population totals.
type AggregateConfig struct {
	TolerateBadPopulation bool `yaml:"tolerate_bad_population" mapstructure:"tolerate_bad_population"`
}

// OutputConfig configures the printed report.
type OutputConfig struct {
	Format       string `yaml:"format" mapstructure:"format"`
	ShowFailures bool   `yaml:"show_failures" mapstructure:"show_failures"`
}

// StoreConfig configures the database backend used to persist runs.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATCHMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.facilities", "nhl-stadiums.csv")
	v.SetDefault("input.places", []string{"canadacities.csv", "uscities.csv"})
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.sheet_name", "")
	v.SetDefault("input.skip_invalid_rows", true)
	v.SetDefault("input.http.user_agent", "catchment/1.0")
	v.SetDefault("input.http.timeout", "60s")
	v.SetDefault("input.http.max_retries", 3)
	v.SetDefault("input.http.rate_per_second", 5.0)
	v.SetDefault("input.facility_columns.id", "id")
	v.SetDefault("input.facility_columns.name", "nhl_team")
	v.SetDefault("input.facility_columns.lat", "lat")
	v.SetDefault("input.facility_columns.lng", "lng")
	v.SetDefault("input.facility_columns.population", "")
	v.SetDefault("input.place_columns.id", "id")
	v.SetDefault("input.place_columns.name", "city_ascii")
	v.SetDefault("input.place_columns.lat", "lat")
	v.SetDefault("input.place_columns.lng", "lng")
	v.SetDefault("input.place_columns.population", "population")
	v.SetDefault("aggregate.tolerate_bad_population", false)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.show_failures", false)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "catchment.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var (
	validFormats = map[string]bool{"text": true, "table": true, "json": true, "yaml": true, "csv": true}
	validDrivers = map[string]bool{"none": true, "sqlite": true, "postgres": true}
)

// Validate checks the settings a command needs. Mode is one of "rank",
// "store" or "" (common checks only).
func (c *Config) Validate(mode string) error {
	var errs []string

	if !validFormats[c.Output.Format] {
		errs = append(errs, fmt.Sprintf("output.format %q is not one of text, table, json, yaml, csv", c.Output.Format))
	}
	if !validDrivers[c.Store.Driver] {
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of none, sqlite, postgres", c.Store.Driver))
	}

	switch mode {
	case "rank":
		if c.Input.Facilities == "" {
			errs = append(errs, "input.facilities is required")
		}
		if len(c.Input.Places) == 0 {
			errs = append(errs, "input.places is required")
		}
		errs = append(errs, c.Input.FacilityColumns.missing("input.facility_columns", false)...)
		errs = append(errs, c.Input.PlaceColumns.missing("input.place_columns", true)...)
	case "store":
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c ColumnsConfig) missing(prefix string, needPopulation bool) []string {
	var errs []string
	for _, f := range []struct{ key, val string }{
		{"id", c.ID}, {"name", c.Name}, {"lat", c.Lat}, {"lng", c.Lng},
	} {
		if f.val == "" {
			errs = append(errs, fmt.Sprintf("%s.%s is required", prefix, f.key))
		}
	}
	if needPopulation && c.Population == "" {
		errs = append(errs, prefix+".population is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
