package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.LLM.Model)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 500, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.LLM.StrictCategories)
	assert.Equal(t, "America/Los_Angeles", cfg.Sheets.TimeZone)
	assert.InDelta(t, 0.9, cfg.Sheets.MinConfidence, 1e-9)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.Telegram.Enabled())
	assert.Contains(t, cfg.Database.Path, "textledger.db")
	assert.NotContains(t, cfg.Database.Path, "$HOME")
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("TWILIO_NUMBER", "+15550001111")
	t.Setenv("MY_NUMBER", "+15552223333")
	t.Setenv("TELEGRAM_USER_ID", "42")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-1")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	assert.Equal(t, "+15550001111", cfg.Twilio.FromNumber)
	assert.Equal(t, "+15552223333", cfg.Twilio.ToNumber)
	assert.Equal(t, int64(42), cfg.Telegram.UserID)
	assert.Equal(t, "sheet-1", cfg.Sheets.SpreadsheetID)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy")
	t.Setenv("TEXTLEDGER_LLM_API_KEY", "prefixed")
	t.Setenv("TEXTLEDGER_LLM_STRICT_CATEGORIES", "true")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.LLM.APIKey)
	assert.True(t, cfg.LLM.StrictCategories)
}

func TestLoad_AllowedSenders(t *testing.T) {
	v := newViper(t)
	v.Set("twilio.allowed_senders", "+15550001111 +15550002222,+15550003333")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"+15550001111", "+15550002222", "+15550003333"}, cfg.Twilio.AllowedSenders)
}

func TestLoad_AllowedSendersYAMLList(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want []string
	}{
		{
			name: "block list",
			yaml: "twilio:\n  allowed_senders:\n    - \"+15551112222\"\n",
			want: []string{"+15551112222"},
		},
		{
			name: "flow list",
			yaml: "twilio:\n  allowed_senders: [\"+15551112222\", \" +15553334444 \"]\n",
			want: []string{"+15551112222", "+15553334444"},
		},
		{
			name: "string",
			yaml: "twilio:\n  allowed_senders: \"+15551112222,+15553334444\"\n",
			want: []string{"+15551112222", "+15553334444"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tt.yaml)))

			cfg, err := Load(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Twilio.AllowedSenders)
		})
	}
}

func TestLoad_InvalidTelegramUser(t *testing.T) {
	v := newViper(t)
	v.Set("telegram.user_id", "abc")

	_, err := Load(v)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(v *viper.Viper)
		wantErr error
		name    string
	}{
		{
			name:    "missing gemini key",
			mutate:  func(*viper.Viper) {},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "valid minimal",
			mutate: func(v *viper.Viper) {
				v.Set("llm.api_key", "k")
			},
		},
		{
			name: "signature validation without auth token",
			mutate: func(v *viper.Viper) {
				v.Set("llm.api_key", "k")
				v.Set("twilio.validate_signature", true)
			},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "sheet without credentials",
			mutate: func(v *viper.Viper) {
				v.Set("llm.api_key", "k")
				v.Set("sheets.spreadsheet_id", "sheet")
			},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name: "bad log level",
			mutate: func(v *viper.Viper) {
				v.Set("llm.api_key", "k")
				v.Set("logging.level", "loud")
			},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")
			t.Setenv("SPREADSHEET_ID", "")

			v := newViper(t)
			tt.mutate(v)

			cfg, err := Load(v)
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("LEDGER_DIR", "/srv/ledger")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/home/tester", ExpandPath("~"))
	assert.Equal(t, "/home/tester/x.db", ExpandPath("~/x.db"))
	assert.Equal(t, "/srv/ledger/x.db", ExpandPath("$LEDGER_DIR/x.db"))
}

func TestTokenFile(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	v := newViper(t)
	assert.Equal(t, "/home/tester/.config/textledger/sheets-token.json", TokenFile(v))

	v.Set("sheets.token_file", "/tmp/token.json")
	assert.Equal(t, "/tmp/token.json", TokenFile(v))
}
