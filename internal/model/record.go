package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus indicates how processing of a message ended.
type RecordStatus string

// Record status constants.
const (
	RecordClassified RecordStatus = "classified"
	RecordFailed     RecordStatus = "failed"
	RecordRejected   RecordStatus = "rejected"
)

// Record is one processed message in the ledger.
type Record struct {
	ReceivedAt  time.Time
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ID          string
	Channel     Channel
	Sender      string
	RawText     string
	Status      RecordStatus
	Type        TransactionType
	Description string
	Category    string
	Error       string
	Confidence  float64
	Exported    bool
}

// NewClassifiedRecord builds a ledger record from a successful classification.
func NewClassifiedRecord(msg InboundMessage, result ClassificationResult) Record {
	return Record{
		ReceivedAt:  msg.ReceivedAt,
		Channel:     msg.Channel,
		Sender:      msg.Sender,
		RawText:     msg.Text,
		Status:      RecordClassified,
		Type:        result.Type,
		Description: result.Data.Description,
		Category:    result.Data.Category,
		Amount:      decimal.NewFromFloat(result.Data.Amount),
		Confidence:  result.Confidence,
	}
}

// NewRejectedRecord builds a ledger record for a message from an unknown sender.
func NewRejectedRecord(msg InboundMessage) Record {
	return Record{
		ReceivedAt: msg.ReceivedAt,
		Channel:    msg.Channel,
		Sender:     msg.Sender,
		RawText:    msg.Text,
		Status:     RecordRejected,
	}
}

// NewFailedRecord builds a ledger record for a message that could not be classified.
func NewFailedRecord(msg InboundMessage, err error) Record {
	return Record{
		ReceivedAt: msg.ReceivedAt,
		Channel:    msg.Channel,
		Sender:     msg.Sender,
		RawText:    msg.Text,
		Status:     RecordFailed,
		Error:      err.Error(),
	}
}
