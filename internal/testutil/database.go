// Package testutil provides shared helpers for tests that need a ledger.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/Veraticus/textledger/internal/storage"
)

// TestDB is an in-memory ledger scoped to a single test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Records        []model.Record
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database that is closed when the
// test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for i := range opts.Records {
		if err := store.SaveRecord(ctx, &opts.Records[i]); err != nil {
			t.Fatalf("failed to seed record %d: %v", i, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustRecords lists every stored record, newest first, or fails the test.
func (db *TestDB) MustRecords() []model.Record {
	db.t.Helper()

	records, err := db.Storage.ListRecords(context.Background(), service.RecordFilter{})
	if err != nil {
		db.t.Fatalf("failed to list records: %v", err)
	}
	return records
}
