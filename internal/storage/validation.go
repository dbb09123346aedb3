// Package storage persists the ledger of processed messages in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/textledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidStatus = errors.New("invalid record status")
	ErrInvalidRecord = errors.New("invalid record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord checks the fields every stored record needs.
func validateRecord(record *model.Record) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.Channel == "" {
		return fmt.Errorf("%w: channel is required", ErrInvalidRecord)
	}
	if record.ReceivedAt.IsZero() {
		return fmt.Errorf("%w: received_at is required", ErrInvalidRecord)
	}

	switch record.Status {
	case model.RecordClassified:
		if record.Type == "" || record.Category == "" {
			return fmt.Errorf("%w: classified record needs type and category", ErrInvalidRecord)
		}
	case model.RecordFailed, model.RecordRejected:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, record.Status)
	}

	return nil
}
