package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/llm"
	"github.com/Veraticus/textledger/internal/sheets"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable viper derives from a key.
const EnvPrefix = "TEXTLEDGER"

// Config is the fully resolved application configuration.
type Config struct {
	Telegram TelegramConfig
	Server   ServerConfig
	Twilio   TwilioConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Sheets   sheets.Config
	LLM      llm.Config
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

// TwilioConfig holds SMS credentials and webhook settings.
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	FromNumber        string
	ToNumber          string
	WebhookURL        string
	AllowedSenders    []string
	ValidateSignature bool
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken    string
	APIEndpoint string
	UserID      int64
}

// Enabled reports whether the Telegram webhook should be served.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// DatabaseConfig locates the SQLite ledger.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// envAliases binds each key to its prefixed variable plus any legacy names.
var envAliases = map[string][]string{
	"server.port":                 {"PORT"},
	"llm.api_key":                 {"GEMINI_API_KEY"},
	"twilio.account_sid":          {"TWILIO_ACCOUNT_SID"},
	"twilio.auth_token":           {"TWILIO_AUTH_TOKEN"},
	"twilio.from_number":          {"TWILIO_NUMBER"},
	"twilio.to_number":            {"MY_NUMBER"},
	"telegram.bot_token":          {"TELEGRAM_BOT_TOKEN"},
	"telegram.user_id":            {"TELEGRAM_USER_ID"},
	"sheets.service_account_path": {"GOOGLE_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"},
	"sheets.service_account_json": {"GOOGLE_SERVICE_ACCOUNT_JSON"},
	"sheets.client_id":            {"GOOGLE_SHEETS_CLIENT_ID"},
	"sheets.client_secret":        {"GOOGLE_SHEETS_CLIENT_SECRET"},
	"sheets.refresh_token":        {"GOOGLE_SHEETS_REFRESH_TOKEN"},
	"sheets.spreadsheet_id":       {"GOOGLE_SHEETS_SPREADSHEET_ID", "SPREADSHEET_ID"},
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultConfig()
	sheetsDefaults := sheets.DefaultConfig()

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.model", llmDefaults.Model)
	v.SetDefault("llm.temperature", llmDefaults.Temperature)
	v.SetDefault("llm.max_output_tokens", llmDefaults.MaxOutputTokens)
	v.SetDefault("llm.timeout", llmDefaults.Timeout)
	v.SetDefault("llm.strict_categories", false)

	v.SetDefault("twilio.validate_signature", false)

	v.SetDefault("sheets.time_zone", sheetsDefaults.TimeZone)
	v.SetDefault("sheets.source_label", sheetsDefaults.SourceLabel)
	v.SetDefault("sheets.min_confidence", sheetsDefaults.MinConfidence)
	v.SetDefault("sheets.retry_attempts", sheetsDefaults.RetryAttempts)
	v.SetDefault("sheets.retry_delay", sheetsDefaults.RetryDelay)

	v.SetDefault("database.path", "$HOME/.local/share/textledger/textledger.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// Load resolves a Config from v. It does not validate.
func Load(v *viper.Viper) (*Config, error) {
	userID := int64(0)
	if raw := strings.TrimSpace(v.GetString("telegram.user_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: telegram.user_id %q is not a number", common.ErrInvalidConfig, raw)
		}
		userID = parsed
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		LLM: llm.Config{
			APIKey:           v.GetString("llm.api_key"),
			Model:            v.GetString("llm.model"),
			BaseURL:          v.GetString("llm.base_url"),
			Temperature:      float32(v.GetFloat64("llm.temperature")),
			MaxOutputTokens:  v.GetInt("llm.max_output_tokens"),
			Timeout:          v.GetDuration("llm.timeout"),
			StrictCategories: v.GetBool("llm.strict_categories"),
		},
		Twilio: TwilioConfig{
			AccountSID:        v.GetString("twilio.account_sid"),
			AuthToken:         v.GetString("twilio.auth_token"),
			FromNumber:        v.GetString("twilio.from_number"),
			ToNumber:          v.GetString("twilio.to_number"),
			WebhookURL:        v.GetString("twilio.webhook_url"),
			AllowedSenders:    stringList(v, "twilio.allowed_senders"),
			ValidateSignature: v.GetBool("twilio.validate_signature"),
		},
		Telegram: TelegramConfig{
			BotToken:    v.GetString("telegram.bot_token"),
			APIEndpoint: v.GetString("telegram.api_endpoint"),
			UserID:      userID,
		},
		Sheets:   LoadSheetsConfig(v),
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	return cfg, nil
}

// Validate checks the settings every command that classifies text needs.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY (llm.api_key) is not set", common.ErrMissingConfig)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("%w: server.port is empty", common.ErrInvalidConfig)
	}

	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
		return fmt.Errorf("%w: twilio.validate_signature requires TWILIO_AUTH_TOKEN", common.ErrMissingConfig)
	}

	if c.Sheets.Enabled() {
		if err := c.Sheets.Validate(); err != nil {
			return fmt.Errorf("%w: sheets: %w", common.ErrInvalidConfig, err)
		}
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() string {
	return filepath.Join(ExpandPath("~"), ".config", "textledger")
}

// stringList reads key as either a YAML list or a delimited string.
func stringList(v *viper.Viper, key string) []string {
	switch v.Get(key).(type) {
	case []any, []string:
		var out []string
		for _, item := range v.GetStringSlice(key) {
			out = append(out, splitList(item)...)
		}
		return out
	default:
		return splitList(v.GetString(key))
	}
}

// splitList splits on whitespace and commas, dropping empty entries.
func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
