package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// rowColumns is the column span each appended row occupies on a month tab.
const rowColumns = "D:H"

// Appender implements service.SheetAppender for Google Sheets.
type Appender struct {
	service  *sheets.Service
	logger   *slog.Logger
	location *time.Location
	config   Config
}

// NewAppender creates a Google Sheets appender using the configured credentials.
func NewAppender(ctx context.Context, config Config, logger *slog.Logger) (*Appender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewAppenderWithService(config, srv, logger)
}

// NewAppenderWithService creates an appender around an existing Sheets service.
func NewAppenderWithService(config Config, srv *sheets.Service, logger *slog.Logger) (*Appender, error) {
	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", config.TimeZone, err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Appender{
		service:  srv,
		logger:   logger,
		location: loc,
		config:   config,
	}, nil
}

// MonthTab returns the tab name for the month containing at, e.g. "OCT".
func MonthTab(at time.Time, loc *time.Location) string {
	return strings.ToUpper(at.In(loc).Format("Jan"))
}

// RangeFor returns the A1 range a row for time at is appended to.
func (a *Appender) RangeFor(at time.Time) string {
	return fmt.Sprintf("%s!%s", MonthTab(at, a.location), rowColumns)
}

// Values converts a row into the cell values written to the sheet.
func (a *Appender) Values(row service.SheetRow, at time.Time) []any {
	source := row.Source
	if source == "" {
		source = a.config.SourceLabel
	}

	return []any{
		row.Description,
		row.Category,
		row.Amount.InexactFloat64(),
		at.In(a.location).Format("2006-01-02"),
		source,
	}
}

// Append implements service.SheetAppender.
func (a *Appender) Append(ctx context.Context, row service.SheetRow, at time.Time) error {
	rangeStr := a.RangeFor(at)
	valueRange := &sheets.ValueRange{
		Values: [][]any{a.Values(row, at)},
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  a.config.RetryAttempts,
		InitialDelay: a.config.RetryDelay,
		MaxDelay:     30 * a.config.RetryDelay,
		Multiplier:   2.0,
	}

	err := common.WithRetry(ctx, a.logger, retryOpts, func(ctx context.Context) error {
		_, err := a.service.Spreadsheets.Values.Append(a.config.SpreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return classifyAPIError(err)
	})
	if err != nil {
		return fmt.Errorf("%w: append to %s: %w", common.ErrUpstreamCall, rangeStr, err)
	}

	a.logger.Info("appended row to sheet",
		"spreadsheet_id", a.config.SpreadsheetID,
		"range", rangeStr,
		"category", row.Category)

	return nil
}

// classifyAPIError marks client errors other than 429 as permanent so a
// missing tab or bad range fails on the first attempt.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	default:
		return err
	}
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" || config.ServiceAccountJSON != "" {
		jsonKey := []byte(config.ServiceAccountJSON)
		if config.ServiceAccountPath != "" {
			var err error
			jsonKey, err = os.ReadFile(config.ServiceAccountPath) // #nosec G304
			if err != nil {
				return nil, fmt.Errorf("unable to read service account key file: %w", err)
			}
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	srv, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
