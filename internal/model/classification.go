// Package model defines the core domain models used throughout the application.
package model

// TransactionData is the categorized payload extracted from a message.
type TransactionData struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Confidence  float64 `json:"confidence"`
}

// ClassificationResult is the outcome of classifying one piece of free text.
// Confidence mirrors Data.Confidence.
type ClassificationResult struct {
	Type       TransactionType `json:"type"`
	Data       TransactionData `json:"data"`
	Confidence float64         `json:"confidence"`
}

// NewClassificationResult builds a result with the confidence populated at both levels.
func NewClassificationResult(t TransactionType, data TransactionData) ClassificationResult {
	return ClassificationResult{
		Type:       t,
		Data:       data,
		Confidence: data.Confidence,
	}
}
