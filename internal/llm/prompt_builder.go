package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/textledger/internal/model"
)

// fewShotExamples are appended to every prompt in this order.
var fewShotExamples = []struct {
	input  string
	output string
}{
	{`mcdonalds, 12`, `{"type": "expense", "description": "McDonald's", "amount": 12, "category": "Eating Out", "confidence": 0.95}`},
	{`wealthfront, 500`, `{"type": "savings", "description": "Savings deposit", "amount": 500, "category": "Wealthfront", "confidence": 0.90}`},
	{`gym membership 25`, `{"type": "bills", "description": "Gym membership", "amount": 25, "category": "Gym", "confidence": 0.96}`},
	{`golf 33`, `{"type": "expense", "description": "Golf", "amount": 33, "category": "Activity", "confidence": 0.97}`},
}

// BuildPrompt returns the classification prompt for rawText.
func BuildPrompt(rawText string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a financial transaction categorizer. Analyze this transaction text: %q\n\n", rawText)

	sb.WriteString("Determine both the transaction type and category from these options:\n")
	for _, t := range model.TransactionTypes() {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Label(), strings.Join(model.CategoriesFor(t), ", "))
	}

	sb.WriteString(`
Extract the amount and create a description with the following valid JSON format only:

{
  "type": "income"|"savings"|"investing"|"bills"|"expense",
  "description": "clean, concise description",
  "amount": number,
  "category": "exact category from the list above",
  "confidence": number between 0 and 1
}

Examples:
`)
	for _, ex := range fewShotExamples {
		fmt.Fprintf(&sb, "- %q → %s\n", ex.input, ex.output)
	}

	return sb.String()
}
