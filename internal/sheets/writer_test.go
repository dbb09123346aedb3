package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI records values.append calls made against it.
type fakeSheetsAPI struct {
	paths    []string
	queries  []string
	bodies   []sheets.ValueRange
	failures int
	// failStatus is the status failed calls answer with; 503 when zero.
	failStatus int
	calls      int
	mu         sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures > 0 {
		f.failures--
		status := f.failStatus
		if status == 0 {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"request failed"}}`, status)
		return
	}

	var body sheets.ValueRange
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.paths = append(f.paths, r.URL.Path)
	f.queries = append(f.queries, r.URL.RawQuery)
	f.bodies = append(f.bodies, body)

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"spreadsheetId":"test_id","updates":{"updatedRows":1}}`)
}

func newTestAppender(t *testing.T, api *fakeSheetsAPI) *Appender {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "test_id"
	cfg.RetryAttempts = 2
	cfg.RetryDelay = time.Millisecond

	appender, err := NewAppenderWithService(cfg, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return appender
}

func TestMonthTab(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	months := []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
	for i, want := range months {
		at := time.Date(2025, time.Month(i+1), 15, 12, 0, 0, 0, la)
		assert.Equal(t, want, MonthTab(at, la))
	}
}

func TestAppender_RangeUsesSheetTimeZone(t *testing.T) {
	appender := newTestAppender(t, &fakeSheetsAPI{})

	assert.Equal(t, "OCT!D:H", appender.RangeFor(time.Unix(1761652800, 0)))

	// 03:00 UTC on Nov 1 is still Oct 31 in Los Angeles.
	assert.Equal(t, "OCT!D:H", appender.RangeFor(time.Date(2025, 11, 1, 3, 0, 0, 0, time.UTC)))
}

func TestAppender_Append(t *testing.T) {
	api := &fakeSheetsAPI{}
	appender := newTestAppender(t, api)

	row := service.SheetRow{
		Description: "Golf",
		Category:    "Activity",
		Amount:      decimal.RequireFromString("22.50"),
	}

	err := appender.Append(context.Background(), row, time.Unix(1761652800, 0))
	require.NoError(t, err)

	require.Len(t, api.bodies, 1)
	assert.Contains(t, api.paths[0], "/v4/spreadsheets/test_id/values/OCT!D:H:append")
	assert.Contains(t, api.queries[0], "valueInputOption=USER_ENTERED")
	assert.Contains(t, api.queries[0], "insertDataOption=INSERT_ROWS")
	assert.Equal(t, [][]any{{"Golf", "Activity", 22.5, "2025-10-28", "Work"}}, api.bodies[0].Values)
}

func TestAppender_AppendRetriesTransientFailures(t *testing.T) {
	api := &fakeSheetsAPI{failures: 1}
	appender := newTestAppender(t, api)

	err := appender.Append(context.Background(), service.SheetRow{
		Description: "Test",
		Category:    "Other",
		Amount:      decimal.NewFromInt(10),
		Source:      "Personal",
	}, time.Unix(1761652800, 0))
	require.NoError(t, err)

	require.Len(t, api.bodies, 1)
	assert.Equal(t, "Personal", api.bodies[0].Values[0][4])
}

func TestAppender_AppendFailure(t *testing.T) {
	api := &fakeSheetsAPI{failures: 5}
	appender := newTestAppender(t, api)

	err := appender.Append(context.Background(), service.SheetRow{
		Description: "Test",
		Category:    "Other",
		Amount:      decimal.NewFromInt(10),
	}, time.Unix(1761652800, 0))

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamCall)
	assert.Empty(t, api.bodies)
}

func TestAppender_AppendClientErrorIsNotRetried(t *testing.T) {
	api := &fakeSheetsAPI{failures: 5, failStatus: http.StatusBadRequest}
	appender := newTestAppender(t, api)
	appender.config.RetryAttempts = 3
	appender.config.RetryDelay = time.Second

	start := time.Now()
	err := appender.Append(context.Background(), service.SheetRow{
		Description: "Test",
		Category:    "Other",
		Amount:      decimal.NewFromInt(10),
	}, time.Unix(1761652800, 0))

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamCall)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 1, api.calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAppender_AppendRetriesRateLimit(t *testing.T) {
	api := &fakeSheetsAPI{failures: 1, failStatus: http.StatusTooManyRequests}
	appender := newTestAppender(t, api)
	appender.config.RetryAttempts = 2

	err := appender.Append(context.Background(), service.SheetRow{
		Description: "Test",
		Category:    "Other",
		Amount:      decimal.NewFromInt(10),
	}, time.Unix(1761652800, 0))

	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestClassifyAPIError(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")

	tests := []struct {
		err           error
		name          string
		wantRetryable bool
		wantRateLimit bool
	}{
		{name: "bad request", err: &googleapi.Error{Code: http.StatusBadRequest}},
		{name: "not found", err: &googleapi.Error{Code: http.StatusNotFound}},
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, wantRetryable: true, wantRateLimit: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, wantRetryable: true},
		{name: "network error", err: plain, wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)

			var retryable *common.RetryableError
			permanent := errors.As(got, &retryable) && !common.IsRetryable(got)
			assert.Equal(t, !tt.wantRetryable, permanent)
			assert.Equal(t, tt.wantRateLimit, errors.Is(got, common.ErrRateLimit))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMockAppender(t *testing.T) {
	mock := NewMockAppender()
	at := time.Unix(1761652800, 0)

	require.NoError(t, mock.Append(context.Background(), service.SheetRow{Category: "Gas"}, at))

	mock.SetAppendError(common.ErrUpstreamCall)
	require.ErrorIs(t, mock.Append(context.Background(), service.SheetRow{Category: "Gym"}, at), common.ErrUpstreamCall)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Gas", calls[0].Row.Category)
	assert.Equal(t, at, calls[1].At)
}
