package sheets

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/textledger/internal/service"
)

// MockAppender is a mock implementation of service.SheetAppender for testing.
type MockAppender struct {
	AppendFunc  func(ctx context.Context, row service.SheetRow, at time.Time) error
	AppendCalls []AppendCall
	mu          sync.Mutex
}

// AppendCall represents a single call to Append.
type AppendCall struct {
	At    time.Time
	Error error
	Row   service.SheetRow
}

// NewMockAppender creates a new mock appender.
func NewMockAppender() *MockAppender {
	return &MockAppender{
		AppendCalls: make([]AppendCall, 0),
	}
}

// Append implements service.SheetAppender.
func (m *MockAppender) Append(ctx context.Context, row service.SheetRow, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.AppendFunc != nil {
		err = m.AppendFunc(ctx, row, at)
	}

	m.AppendCalls = append(m.AppendCalls, AppendCall{
		Row:   row,
		At:    at,
		Error: err,
	})

	return err
}

// SetAppendError configures the mock to fail every Append call with err.
func (m *MockAppender) SetAppendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendFunc = func(context.Context, service.SheetRow, time.Time) error {
		return err
	}
}

// Calls returns a copy of all recorded calls.
func (m *MockAppender) Calls() []AppendCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]AppendCall, len(m.AppendCalls))
	copy(calls, m.AppendCalls)
	return calls
}
