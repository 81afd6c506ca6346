package extraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/shopspring/decimal"
)

// receiptKeys are the fields requested from the model for a single document.
var receiptKeys = []string{
	"merchantName", "amount", "currency", "transactionDate", "category", "description",
	"invoiceNumber", "taxAmount", "totalAmount", "paymentMethod", "items",
}

// cleanModelJSON strips Markdown fences and keeps the text between the first
// open and the last close delimiter.
func cleanModelJSON(raw, openDelim, closeDelim string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, openDelim)
	end := strings.LastIndex(s, closeDelim)
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeLenient decodes s into v with the standard decoder first, then after a
// repair pass, then as Hjson. accept rejects lenient results that decoded but
// carry nothing useful. repaired is true when the standard decoder failed and
// a lenient stage produced v.
func decodeLenient(s string, v interface{}, accept func() bool) (repaired bool, err error) {
	stdErr := json.Unmarshal([]byte(s), v)
	if stdErr == nil {
		return false, nil
	}

	if fixed, err := jsonrepair.RepairJSON(s); err == nil {
		if err := json.Unmarshal([]byte(fixed), v); err == nil && accept() {
			return true, nil
		}
	}

	if err := hjson.Unmarshal([]byte(s), v); err == nil && accept() {
		return true, nil
	}

	return false, fmt.Errorf("decodeLenient: %w", stdErr)
}

func hasAnyKey(m map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// getStringField returns a string field, formatting bare numbers; anything else is "".
func getStringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// getDecimalField returns a numeric field; ok is false when it is missing or not numeric.
func getDecimalField(obj map[string]interface{}, key string) (decimal.Decimal, bool) {
	switch v := obj[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := ParseAmount(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

// getStringSliceField returns the string elements of an array field in order.
func getStringSliceField(obj map[string]interface{}, key string) []string {
	arr, ok := obj[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
