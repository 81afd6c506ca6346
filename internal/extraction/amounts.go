package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(10000)

// ParseAmount parses a matched amount substring. A leading currency symbol,
// thousands separators and a sign on either side of the symbol are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		negative = s[0] == '-'
		s = s[1:]
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// InReceiptRange reports whether d lies in [0, 10000).
func InReceiptRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(maxAmount)
}

// InStatementRange reports whether the magnitude of d lies in (0, 10000).
func InStatementRange(d decimal.Decimal) bool {
	abs := d.Abs()
	return abs.IsPositive() && abs.LessThan(maxAmount)
}
