// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/textledger/internal/model"
	"github.com/shopspring/decimal"
)

// Classifier turns free-form transaction text into a categorized result.
// Implementations perform network I/O and must honour ctx.
type Classifier interface {
	Classify(ctx context.Context, rawText string) (model.ClassificationResult, error)
}

// RecordFilter defines filtering options for ledger queries.
type RecordFilter struct {
	Since   *time.Time
	Channel model.Channel
	Limit   int
}

// Storage defines the contract for the message ledger.
type Storage interface {
	SaveRecord(ctx context.Context, record *model.Record) error
	MarkExported(ctx context.Context, id string) error
	GetRecord(ctx context.Context, id string) (*model.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)
	CountByStatus(ctx context.Context) (map[model.RecordStatus]int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// SheetRow is one line appended to the monthly spreadsheet tab.
type SheetRow struct {
	Description string
	Category    string
	Source      string
	Amount      decimal.Decimal
}

// SheetAppender appends classified transactions to a spreadsheet.
type SheetAppender interface {
	Append(ctx context.Context, row SheetRow, at time.Time) error
}

// TelegramReplier sends a text reply to a Telegram chat.
type TelegramReplier interface {
	Reply(ctx context.Context, chatID int64, text string) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
