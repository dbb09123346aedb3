// Package engine runs each inbound message through classification, the
// ledger and the spreadsheet, and composes the reply sent back to the user.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/shopspring/decimal"
)

// Config holds the engine's authorization and export settings.
type Config struct {
	AllowedSenders []string
	MinConfidence  float64
	TelegramUserID int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.9,
	}
}

// Engine processes inbound messages.
type Engine struct {
	classifier service.Classifier
	storage    service.Storage
	sheets     service.SheetAppender
	logger     *slog.Logger
	now        func() time.Time
	config     Config
}

// Outcome describes what happened to one message.
type Outcome struct {
	Result   *model.ClassificationResult
	Reply    string
	Record   model.Record
	Exported bool
}

// New creates an engine. storage and sheets may be nil to skip recording
// and exporting respectively.
func New(classifier service.Classifier, storage service.Storage, sheets service.SheetAppender, config Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		storage:    storage,
		sheets:     sheets,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Authorized reports whether msg comes from a sender allowed to log transactions.
func (e *Engine) Authorized(msg model.InboundMessage) bool {
	switch msg.Channel {
	case model.ChannelSMS:
		return len(e.config.AllowedSenders) == 0 || slices.Contains(e.config.AllowedSenders, msg.Sender)
	case model.ChannelTelegram:
		return e.config.TelegramUserID != 0 && msg.Sender == strconv.FormatInt(e.config.TelegramUserID, 10)
	default:
		return true
	}
}

// Process classifies msg, records the outcome and returns the reply text.
// The returned error, if any, is a *common.UserError whose message is also
// the outcome's Reply.
func (e *Engine) Process(ctx context.Context, msg model.InboundMessage) (Outcome, error) {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = e.now()
	}
	msg.Text = strings.TrimSpace(msg.Text)

	logger := e.logger.With("channel", msg.Channel, "sender", msg.Sender)

	if msg.Text == "" {
		return e.fail(Outcome{}, common.ErrEmptyMessage)
	}

	if !e.Authorized(msg) {
		logger.Warn("ignoring message from unauthorized sender")
		record := model.NewRejectedRecord(msg)
		e.save(ctx, logger, &record)
		return Outcome{Record: record}, fmt.Errorf("%w: %s", common.ErrUnauthorizedSender, msg.Sender)
	}

	logger.Info("processing message", "text", msg.Text)

	result, err := e.classifier.Classify(ctx, msg.Text)
	if err != nil {
		record := model.NewFailedRecord(msg, err)
		e.save(ctx, logger, &record)
		return e.fail(Outcome{Record: record}, err)
	}

	record := model.NewClassifiedRecord(msg, result)
	e.save(ctx, logger, &record)

	outcome := Outcome{Record: record, Result: &result}
	outcome.Exported = e.export(ctx, logger, &outcome.Record, result)
	outcome.Reply = e.FormatReply(result, outcome.Exported)

	return outcome, nil
}

func (e *Engine) save(ctx context.Context, logger *slog.Logger, record *model.Record) {
	if e.storage == nil {
		return
	}
	if err := e.storage.SaveRecord(ctx, record); err != nil {
		logger.Error("failed to save record", "error", err, "status", record.Status)
	}
}

// export appends confident results to the sheet and reports whether it did.
func (e *Engine) export(ctx context.Context, logger *slog.Logger, record *model.Record, result model.ClassificationResult) bool {
	if e.sheets == nil {
		return false
	}
	if result.Confidence < e.config.MinConfidence {
		logger.Info("confidence below export threshold",
			"confidence", result.Confidence,
			"threshold", e.config.MinConfidence)
		return false
	}

	row := service.SheetRow{
		Description: result.Data.Description,
		Category:    result.Data.Category,
		Amount:      record.Amount,
	}
	if err := e.sheets.Append(ctx, row, record.ReceivedAt); err != nil {
		logger.Error("failed to append row to sheet", "error", err)
		return false
	}

	record.Exported = true
	if e.storage != nil && record.ID != "" {
		if err := e.storage.MarkExported(ctx, record.ID); err != nil {
			logger.Error("failed to mark record exported", "error", err, "record_id", record.ID)
		}
	}
	return true
}

// FormatReply renders the confirmation sent back to the user.
func (e *Engine) FormatReply(result model.ClassificationResult, exported bool) string {
	reply := fmt.Sprintf("Recorded %s: %s $%s (%s, %d%%)",
		result.Type,
		result.Data.Description,
		decimal.NewFromFloat(result.Data.Amount).StringFixed(2),
		result.Data.Category,
		int(math.Round(result.Confidence*100)))

	if e.sheets != nil && !exported {
		reply += ". Not added to the sheet"
		if result.Confidence < e.config.MinConfidence {
			reply += " (low confidence)"
		}
	}
	return reply
}

func (e *Engine) fail(outcome Outcome, err error) (Outcome, error) {
	userErr := common.NewUserError(UserMessage(err), err)
	outcome.Reply = UserMessage(err)
	return outcome, userErr
}

// UserMessage returns the text shown to a user whose message failed with err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrEmptyMessage):
		return `Send a transaction like "golf 33".`
	case errors.Is(err, context.DeadlineExceeded):
		return "Sorry, classifying that took too long. Please try again."
	case errors.Is(err, common.ErrUpstreamCall):
		return "Sorry, the classifier is unavailable right now. Please try again."
	case common.IsClassificationError(err):
		return `Sorry, I couldn't understand that. Try something like "golf 33".`
	default:
		return "Sorry, something went wrong recording that transaction."
	}
}
