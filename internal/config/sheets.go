package config

import (
	"github.com/Veraticus/textledger/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig reads the sheets.* keys from v on top of sheets.DefaultConfig.
// Legacy GOOGLE_* variables are bound to the same keys by SetDefaults.
func LoadSheetsConfig(v *viper.Viper) sheets.Config {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ServiceAccountJSON = v.GetString("sheets.service_account_json")
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")

	if tz := v.GetString("sheets.time_zone"); tz != "" {
		config.TimeZone = tz
	}
	if label := v.GetString("sheets.source_label"); label != "" {
		config.SourceLabel = label
	}
	if v.IsSet("sheets.min_confidence") {
		config.MinConfidence = v.GetFloat64("sheets.min_confidence")
	}
	if v.IsSet("sheets.retry_attempts") {
		config.RetryAttempts = v.GetInt("sheets.retry_attempts")
	}
	if v.IsSet("sheets.retry_delay") {
		config.RetryDelay = v.GetDuration("sheets.retry_delay")
	}

	return config
}

// TokenFile returns where `auth sheets` caches the OAuth2 token.
func TokenFile(v *viper.Viper) string {
	if path := v.GetString("sheets.token_file"); path != "" {
		return ExpandPath(path)
	}
	return ExpandPath("~/.config/textledger/sheets-token.json")
}
