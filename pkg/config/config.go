package config

import (
	"context"
	"slices"
	"time"

	"github.com/compozy/tally/engine/title"
)

// Config represents the complete configuration of the tally engine.
type Config struct {
	Title        TitleConfig        `koanf:"title"`
	Tax          TaxConfig          `koanf:"tax"`
	ReportCard   ReportCardConfig   `koanf:"report_card"`
	Transactions TransactionsConfig `koanf:"transactions"`
	Log          LogConfig          `koanf:"log"`
	Monitoring   MonitoringConfig   `koanf:"monitoring"`
}

// TitleConfig configures title casing.
type TitleConfig struct {
	MinorWords []string `koanf:"minor_words" validate:"dive,lower_token" env:"TALLY_TITLE_MINOR_WORDS"`
}

// TaxConfig holds rate overrides merged over the built-in GST table.
type TaxConfig struct {
	Rates map[string]int `koanf:"rates" validate:"dive,keys,lower_token,endkeys,gte=0,lte=100"`
}

// ReportCardConfig configures grading.
type ReportCardConfig struct {
	PassMark       float64 `koanf:"pass_mark"        validate:"gt=0,lte=100" env:"TALLY_REPORT_CARD_PASS_MARK"`
	AllowZeroMarks bool    `koanf:"allow_zero_marks"                         env:"TALLY_REPORT_CARD_ALLOW_ZERO_MARKS"`
}

// TransactionsConfig configures transaction analysis.
type TransactionsConfig struct {
	LargeThreshold float64 `koanf:"large_threshold" validate:"gt=0"      env:"TALLY_TRANSACTIONS_LARGE_THRESHOLD"`
	Uncategorized  string  `koanf:"uncategorized"   validate:"notblank" env:"TALLY_TRANSACTIONS_UNCATEGORIZED"`
	Filter         string  `koanf:"filter"                              env:"TALLY_TRANSACTIONS_FILTER"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	Level     string `koanf:"level"      validate:"omitempty,oneof=debug info warn error disabled" env:"TALLY_LOG_LEVEL"`
	JSON      bool   `koanf:"json"                                                                 env:"TALLY_LOG_JSON"`
	AddSource bool   `koanf:"add_source"                                                           env:"TALLY_LOG_ADD_SOURCE"`
}

// MonitoringConfig toggles operation metrics.
type MonitoringConfig struct {
	Enabled   bool   `koanf:"enabled"    env:"TALLY_MONITORING_ENABLED"`
	MeterName string `koanf:"meter_name" env:"TALLY_MONITORING_METER_NAME" validate:"required"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Watch registers a callback invoked on configuration updates.
	Watch(ctx context.Context, callback func(*Config)) error
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceMap     SourceType = "map"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration from defaults and the environment.
func Load() (*Config, error) {
	return NewService().Load(context.Background())
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Title: TitleConfig{
			MinorWords: slices.Clone(title.DefaultMinorWords),
		},
		Tax: TaxConfig{
			Rates: map[string]int{},
		},
		ReportCard: ReportCardConfig{
			PassMark:       40,
			AllowZeroMarks: false,
		},
		Transactions: TransactionsConfig{
			LargeThreshold: 5000,
			Uncategorized:  "uncategorized",
		},
		Log: LogConfig{
			Level: "disabled",
		},
		Monitoring: MonitoringConfig{
			Enabled:   false,
			MeterName: "tally",
		},
	}
}
