// Package sheets appends classified transactions to a Google Sheets ledger.
package sheets

import (
	"fmt"
	"time"
)

// Config holds the configuration for the Google Sheets appender.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	ServiceAccountJSON string
	SpreadsheetID      string
	TimeZone           string
	SourceLabel        string
	MinConfidence      float64
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TimeZone:      "America/Los_Angeles",
		SourceLabel:   "Work",
		MinConfidence: 0.9,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Enabled reports whether a spreadsheet has been configured at all.
func (c *Config) Enabled() bool {
	return c.SpreadsheetID != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != "" || c.ServiceAccountJSON != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}

	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
