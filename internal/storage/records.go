package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const recordColumns = `id, channel, sender, raw_text, received_at, status, type,
	description, amount, category, confidence, error, exported, created_at`

// SaveRecord inserts record, assigning an ID and CreatedAt when unset.
func (s *SQLiteStorage) SaveRecord(ctx context.Context, record *model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		string(record.Channel),
		record.Sender,
		record.RawText,
		record.ReceivedAt.UTC(),
		string(record.Status),
		string(record.Type),
		record.Description,
		record.Amount.String(),
		record.Category,
		record.Confidence,
		record.Error,
		record.Exported,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// MarkExported flags a record as appended to the spreadsheet.
func (s *SQLiteStorage) MarkExported(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE records SET exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark record exported: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// GetRecord returns the record with the given ID.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// ListRecords returns records newest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter service.RecordFilter) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, string(filter.Channel))
	}
	if filter.Since != nil {
		where = append(where, "received_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY received_at DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// CountByStatus returns how many records ended in each status.
func (s *SQLiteStorage) CountByStatus(ctx context.Context) (map[model.RecordStatus]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.RecordStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.RecordStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		record                              model.Record
		channel, status, txType, amountText string
	)

	err := row.Scan(
		&record.ID,
		&channel,
		&record.Sender,
		&record.RawText,
		&record.ReceivedAt,
		&status,
		&txType,
		&record.Description,
		&amountText,
		&record.Category,
		&record.Confidence,
		&record.Error,
		&record.Exported,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Record{}, err
		}
		return model.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to parse amount %q: %w", amountText, err)
	}

	record.Channel = model.Channel(channel)
	record.Status = model.RecordStatus(status)
	record.Type = model.TransactionType(txType)
	record.Amount = amount

	return record, nil
}
