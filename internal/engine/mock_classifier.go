package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/textledger/internal/model"
)

// MockClassifier is a test implementation of service.Classifier that returns
// canned results keyed by input text.
type MockClassifier struct {
	Results map[string]model.ClassificationResult
	Errors  map[string]error
	calls   []string
	mu      sync.Mutex
}

// NewMockClassifier creates a mock with no canned answers.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Results: make(map[string]model.ClassificationResult),
		Errors:  make(map[string]error),
	}
}

// On registers the result returned for text.
func (m *MockClassifier) On(text string, t model.TransactionType, data model.TransactionData) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[text] = model.NewClassificationResult(t, data)
	return m
}

// Fail registers the error returned for text.
func (m *MockClassifier) Fail(text string, err error) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[text] = err
	return m
}

// Classify implements service.Classifier.
func (m *MockClassifier) Classify(ctx context.Context, rawText string) (model.ClassificationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, rawText)

	if err := ctx.Err(); err != nil {
		return model.ClassificationResult{}, err
	}
	if err, ok := m.Errors[rawText]; ok {
		return model.ClassificationResult{}, err
	}
	if result, ok := m.Results[rawText]; ok {
		return result, nil
	}
	return model.NewClassificationResult(model.TypeExpense, model.TransactionData{
		Description: rawText,
		Category:    "Other",
		Amount:      1,
		Confidence:  0.5,
	}), nil
}

// Calls returns the texts classified so far.
func (m *MockClassifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
