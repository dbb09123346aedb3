package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/model"
)

var (
	fenceOpenPattern  = regexp.MustCompile("```json\\s*")
	fenceClosePattern = regexp.MustCompile("\\s*```")
)

// stripCodeFence removes one ```json opener and one closing fence when the
// reply contains a ```json marker. Anything else is returned unchanged.
func stripCodeFence(reply string) string {
	if !strings.Contains(reply, "```json") {
		return reply
	}
	reply = replaceFirst(fenceOpenPattern, reply)
	return replaceFirst(fenceClosePattern, reply)
}

func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// rawClassification mirrors the reply JSON. Pointer fields distinguish a
// missing key from a zero value. Numbers stay raw so that a non-numeric
// value is a shape problem rather than a decode failure.
type rawClassification struct {
	Type        *string         `json:"type"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Amount      json.RawMessage `json:"amount"`
	Confidence  json.RawMessage `json:"confidence"`
}

// parseReply turns model reply text into a classification result. An empty
// reply is treated as "{}" before any fence is stripped.
func parseReply(reply string, strictCategories bool) (model.ClassificationResult, error) {
	if reply == "" {
		reply = "{}"
	}
	text := stripCodeFence(reply)

	var raw rawClassification
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return model.ClassificationResult{}, fmt.Errorf("%w: field %q has the wrong type", common.ErrResponseShape, typeErr.Field)
		}
		return model.ClassificationResult{}, fmt.Errorf("%w: %w", common.ErrResponseParse, err)
	}

	return raw.validate(strictCategories)
}

// isNull reports whether a raw field is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parseNumber accepts a JSON number or a string holding one.
func parseNumber(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r rawClassification) validate(strictCategories bool) (model.ClassificationResult, error) {
	var missing []string
	if r.Type == nil || *r.Type == "" {
		missing = append(missing, "type")
	}
	if r.Description == nil || *r.Description == "" {
		missing = append(missing, "description")
	}
	if r.Category == nil || *r.Category == "" {
		missing = append(missing, "category")
	}

	amount, ok := parseNumber(r.Amount)
	if isNull(r.Amount) || !ok || amount == 0 {
		missing = append(missing, "amount")
	}

	// Only an absent confidence is missing; null reads as zero.
	var confidence float64
	switch {
	case len(r.Confidence) == 0:
		missing = append(missing, "confidence")
	case isNull(r.Confidence):
	default:
		if confidence, ok = parseNumber(r.Confidence); !ok {
			missing = append(missing, "confidence")
		}
	}

	if len(missing) > 0 {
		return model.ClassificationResult{}, fmt.Errorf("%w: missing or empty %s", common.ErrResponseShape, strings.Join(missing, ", "))
	}

	if !model.IsValidType(*r.Type) {
		return model.ClassificationResult{}, fmt.Errorf("%w: invalid transaction type: %s", common.ErrResponseShape, *r.Type)
	}
	txType := model.TransactionType(*r.Type)

	if strictCategories && !model.HasCategory(txType, *r.Category) {
		return model.ClassificationResult{}, fmt.Errorf("%w: category %q is not a %s category", common.ErrResponseShape, *r.Category, txType)
	}

	return model.NewClassificationResult(txType, model.TransactionData{
		Description: *r.Description,
		Category:    *r.Category,
		Amount:      amount,
		Confidence:  confidence,
	}), nil
}
