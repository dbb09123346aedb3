package testutil

import (
	"time"

	"github.com/Veraticus/textledger/internal/model"
	"github.com/shopspring/decimal"
)

// FixedTime is 2025-10-28 05:00 in Los Angeles, a Tuesday in October.
var FixedTime = time.Unix(1761652800, 0).UTC()

// RecordBuilder builds ledger records for tests with a fluent API.
type RecordBuilder struct {
	record model.Record
}

// NewRecordBuilder starts from a classified SMS record for "golf 33".
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{record: model.Record{
		ReceivedAt:  FixedTime,
		Channel:     model.ChannelSMS,
		Sender:      "+15552223333",
		RawText:     "golf 33",
		Status:      model.RecordClassified,
		Type:        model.TypeExpense,
		Description: "Golf",
		Category:    "Activity",
		Amount:      decimal.NewFromInt(33),
		Confidence:  0.97,
	}}
}

// WithChannel sets the channel.
func (b *RecordBuilder) WithChannel(ch model.Channel) *RecordBuilder {
	b.record.Channel = ch
	return b
}

// WithReceivedAt sets when the message arrived.
func (b *RecordBuilder) WithReceivedAt(at time.Time) *RecordBuilder {
	b.record.ReceivedAt = at
	return b
}

// WithText sets the raw message text.
func (b *RecordBuilder) WithText(text string) *RecordBuilder {
	b.record.RawText = text
	return b
}

// Failed turns the record into a failed one carrying msg.
func (b *RecordBuilder) Failed(msg string) *RecordBuilder {
	b.record.Status = model.RecordFailed
	b.record.Type = ""
	b.record.Description = ""
	b.record.Category = ""
	b.record.Amount = decimal.Zero
	b.record.Confidence = 0
	b.record.Error = msg
	return b
}

// Build returns the record.
func (b *RecordBuilder) Build() model.Record {
	return b.record
}
