package monitoring

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMeterName names the meter when configuration leaves it out.
const DefaultMeterName = "tally"

// Config selects whether operations are metered and under which meter name.
type Config struct {
	Enabled   bool   `json:"enabled"    yaml:"enabled"    mapstructure:"enabled"`
	MeterName string `json:"meter_name" yaml:"meter_name" mapstructure:"meter_name"`
}

// DefaultConfig returns a disabled configuration.
func DefaultConfig() *Config {
	return &Config{MeterName: DefaultMeterName}
}

// Validate requires the meter name to be a single non-empty token.
func (c *Config) Validate() error {
	switch name := c.MeterName; {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("monitoring meter name cannot be empty")
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return fmt.Errorf("monitoring meter name cannot contain white space: got %q", name)
	}
	return nil
}
