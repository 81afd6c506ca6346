package extraction

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "dollar", input: "$45.00", want: "45"},
		{name: "dollar with space", input: "$ 7.25", want: "7.25"},
		{name: "sign before symbol", input: "-$23.50", want: "-23.5"},
		{name: "sign after symbol", input: "$-5", want: "-5"},
		{name: "plus sign", input: "+12.00", want: "12"},
		{name: "thousands separator", input: "1,234.56", want: "1234.56"},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmountRanges(t *testing.T) {
	tests := []struct {
		value         string
		wantReceipt   bool
		wantStatement bool
	}{
		{value: "0", wantReceipt: true, wantStatement: false},
		{value: "45.00", wantReceipt: true, wantStatement: true},
		{value: "9999.99", wantReceipt: true, wantStatement: true},
		{value: "10000", wantReceipt: false, wantStatement: false},
		{value: "-23.50", wantReceipt: false, wantStatement: true},
		{value: "-10000", wantReceipt: false, wantStatement: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := decimal.RequireFromString(tt.value)
			if got := InReceiptRange(d); got != tt.wantReceipt {
				t.Errorf("InReceiptRange(%s) = %v, want %v", tt.value, got, tt.wantReceipt)
			}
			if got := InStatementRange(d); got != tt.wantStatement {
				t.Errorf("InStatementRange(%s) = %v, want %v", tt.value, got, tt.wantStatement)
			}
		})
	}
}
