package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv isolates a command run from the developer's environment and
// returns the ledger path it uses.
func testEnv(t *testing.T) (configFile, dbPath string) {
	t.Helper()

	dir := t.TempDir()
	configFile = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("logging:\n  level: warn\n"), 0o600))
	dbPath = filepath.Join(dir, "ledger", "textledger.db")

	for _, name := range []string{
		"GEMINI_API_KEY", "TEXTLEDGER_LLM_API_KEY",
		"GOOGLE_SHEETS_SPREADSHEET_ID", "SPREADSHEET_ID", "TEXTLEDGER_SHEETS_SPREADSHEET_ID",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_NUMBER", "MY_NUMBER",
		"TELEGRAM_USER_ID", "TEXTLEDGER_TELEGRAM_USER_ID",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("TEXTLEDGER_DATABASE_PATH", dbPath)

	return configFile, dbPath
}

// fakeGemini answers generateContent. Messages containing "garbage" get a
// reply that is not JSON.
func fakeGemini(t *testing.T) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		reply := `{"type": "expense", "description": "Golf", "amount": 33, "category": "Activity", "confidence": 0.97}`
		if strings.Contains(string(body), `text: \"garbage\"`) {
			reply = "I am not sure what that is."
		}

		resp := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": reply}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TEXTLEDGER_LLM_BASE_URL", srv.URL+"/")
}

func run(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", configFile}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	configFile, _ := testEnv(t)

	out, err := run(t, configFile, "version")
	require.NoError(t, err)
	assert.Equal(t, "textledger dev\n", out)
}

func TestTaxonomyCommand(t *testing.T) {
	configFile, _ := testEnv(t)

	out, err := run(t, configFile, "taxonomy")
	require.NoError(t, err)
	assert.Contains(t, out, "Taxonomy")
	assert.Contains(t, out, "Eating Out")
	assert.Contains(t, out, "Wealthfront")

	out, err = run(t, configFile, "taxonomy", "--json")
	require.NoError(t, err)

	var entries []taxonomyEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 5)
	assert.Equal(t, "income", string(entries[0].Type))
	assert.Equal(t, "Expense", entries[4].Label)
	assert.Contains(t, entries[4].Categories, "Activity")
}

func TestClassifyCommand_RecordsToLedger(t *testing.T) {
	configFile, _ := testEnv(t)
	fakeGemini(t)

	out, err := run(t, configFile, "classify", "golf", "33")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded expense: Golf $33.00 (Activity, 97%)")

	out, err = run(t, configFile, "history", "--json")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "golf 33", records[0]["RawText"])
	assert.Equal(t, "classified", records[0]["Status"])
	assert.Equal(t, "cli", records[0]["Channel"])
	assert.Equal(t, false, records[0]["Exported"])

	out, err = run(t, configFile, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "golf 33")
	assert.Contains(t, out, "1 classified, 0 failed, 0 rejected")
}

func TestClassifyCommand_DryRun(t *testing.T) {
	configFile, dbPath := testEnv(t)
	fakeGemini(t)

	out, err := run(t, configFile, "classify", "--dry-run", "--json", "golf 33")
	require.NoError(t, err)

	var line classifyLine
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	require.NotNil(t, line.Result)
	assert.Equal(t, "Activity", line.Result.Data.Category)
	assert.Empty(t, line.Error)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create the ledger")
}

func TestClassifyCommand_File(t *testing.T) {
	configFile, _ := testEnv(t)
	fakeGemini(t)

	input := filepath.Join(t.TempDir(), "messages.txt")
	require.NoError(t, os.WriteFile(input, []byte("golf 33\n# skipped\n\ngarbage\ngolf 33\n"), 0o600))

	out, err := run(t, configFile, "classify", "--file", input, "--json", "--concurrency", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 messages failed")

	var lines []classifyLine
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 3)

	assert.Equal(t, "golf 33", lines[0].Text)
	require.NotNil(t, lines[0].Result)
	assert.Equal(t, "garbage", lines[1].Text)
	assert.Nil(t, lines[1].Result)
	assert.NotEmpty(t, lines[1].Error)
	require.NotNil(t, lines[2].Result)

	out, err = run(t, configFile, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "2 classified, 1 failed, 0 rejected")
}

func TestClassifyCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no input", []string{"classify"}, "provide text"},
		{"text and file", []string{"classify", "--file", "x.txt", "golf 33"}, "not both"},
		{"bad concurrency", []string{"classify", "--concurrency", "0", "golf 33"}, "--concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile, _ := testEnv(t)
			fakeGemini(t)

			_, err := run(t, configFile, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClassifyCommand_MissingAPIKey(t *testing.T) {
	configFile, _ := testEnv(t)

	_, err := run(t, configFile, "classify", "golf 33")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestMigrateCommand(t *testing.T) {
	configFile, dbPath := testEnv(t)

	out, err := run(t, configFile, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "Pending:         2")

	out, err = run(t, configFile, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 2 migration(s)")
	assert.NotContains(t, out, "Backup written")

	out, err = run(t, configFile, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("up to date (version %d)", 2))

	out, err = run(t, configFile, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 2")
	assert.Contains(t, out, dbPath)
}

func TestSendCommand_MissingCredentials(t *testing.T) {
	configFile, _ := testEnv(t)

	_, err := run(t, configFile, "send", "--to", "+15550001111", "hello")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestServeCommand_MissingAPIKey(t *testing.T) {
	configFile, _ := testEnv(t)

	_, err := run(t, configFile, "serve")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestInvalidConfigFile(t *testing.T) {
	testEnv(t)

	bad := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logging: [\n"), 0o600))

	_, err := run(t, bad, "version")
	assert.Error(t, err)
}
