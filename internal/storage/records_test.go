package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStorage returns a migrated in-memory ledger.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

var baseTime = time.Date(2025, 10, 28, 12, 0, 0, 0, time.UTC)

func classifiedRecord(text string, at time.Time) *model.Record {
	return &model.Record{
		ReceivedAt:  at,
		Channel:     model.ChannelSMS,
		Sender:      "+15552223333",
		RawText:     text,
		Status:      model.RecordClassified,
		Type:        model.TypeExpense,
		Description: "Golf",
		Category:    "Activity",
		Amount:      decimal.RequireFromString("33.50"),
		Confidence:  0.97,
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	record := classifiedRecord("golf 33.50", baseTime)
	require.NoError(t, store.SaveRecord(ctx, record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())

	got, err := store.GetRecord(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, model.ChannelSMS, got.Channel)
	assert.Equal(t, "golf 33.50", got.RawText)
	assert.Equal(t, model.TypeExpense, got.Type)
	assert.Equal(t, "Activity", got.Category)
	assert.True(t, decimal.RequireFromString("33.5").Equal(got.Amount))
	assert.InDelta(t, 0.97, got.Confidence, 1e-9)
	assert.True(t, baseTime.Equal(got.ReceivedAt))
	assert.False(t, got.Exported)
}

func TestGetRecord_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetRecord(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveRecord_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		record  *model.Record
		wantErr error
		name    string
	}{
		{name: "nil record", record: nil, wantErr: ErrNilParameter},
		{
			name:    "missing channel",
			record:  &model.Record{ReceivedAt: baseTime, Status: model.RecordFailed},
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "missing received time",
			record:  &model.Record{Channel: model.ChannelSMS, Status: model.RecordFailed},
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "unknown status",
			record:  &model.Record{Channel: model.ChannelSMS, ReceivedAt: baseTime, Status: "pending"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "classified without category",
			record:  &model.Record{Channel: model.ChannelSMS, ReceivedAt: baseTime, Status: model.RecordClassified, Type: model.TypeExpense},
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveRecord(ctx, tt.record)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMarkExported(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	record := classifiedRecord("golf 33", baseTime)
	require.NoError(t, store.SaveRecord(ctx, record))
	require.NoError(t, store.MarkExported(ctx, record.ID))

	got, err := store.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, got.Exported)

	require.ErrorIs(t, store.MarkExported(ctx, "missing"), common.ErrNotFound)
}

func TestListRecords(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := classifiedRecord("first", baseTime.Add(-2*time.Hour))
	second := classifiedRecord("second", baseTime.Add(-1*time.Hour))
	third := &model.Record{
		ReceivedAt: baseTime,
		Channel:    model.ChannelTelegram,
		Sender:     "42",
		RawText:    "third",
		Status:     model.RecordFailed,
		Error:      "upstream call failed",
	}
	for _, r := range []*model.Record{first, second, third} {
		require.NoError(t, store.SaveRecord(ctx, r))
	}

	all, err := store.ListRecords(ctx, service.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{all[0].RawText, all[1].RawText, all[2].RawText})
	assert.True(t, all[0].Amount.IsZero())

	sms, err := store.ListRecords(ctx, service.RecordFilter{Channel: model.ChannelSMS})
	require.NoError(t, err)
	assert.Len(t, sms, 2)

	since := baseTime.Add(-90 * time.Minute)
	recent, err := store.ListRecords(ctx, service.RecordFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := store.ListRecords(ctx, service.RecordFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].RawText)
}

func TestCountByStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, classifiedRecord("a", baseTime)))
	require.NoError(t, store.SaveRecord(ctx, classifiedRecord("b", baseTime)))
	require.NoError(t, store.SaveRecord(ctx, &model.Record{
		ReceivedAt: baseTime, Channel: model.ChannelSMS, RawText: "c", Status: model.RecordRejected,
	}))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.RecordStatus]int{
		model.RecordClassified: 2,
		model.RecordRejected:   1,
	}, counts)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	pending, err := store.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Len(t, Migrations(), ExpectedSchemaVersion)
}

func TestFileStorage_BackupAndReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)

	pending, err := store.PendingMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, pending)

	require.NoError(t, store.Migrate(ctx))
	record := classifiedRecord("golf 33", baseTime)
	require.NoError(t, store.SaveRecord(ctx, record))

	backup, err := store.Backup(ctx, "pre-migrate")
	require.NoError(t, err)
	assert.FileExists(t, backup)
	assert.Equal(t, store.BackupDir(), filepath.Dir(backup))

	_, err = store.Backup(ctx, "../escape")
	assert.Error(t, err)

	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(backup)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "golf 33", got.RawText)
}

func TestBackup_InMemoryRejected(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.Backup(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage(" ")
	require.ErrorIs(t, err, ErrEmptyString)
}
