// Package bigquery persists extraction results to BigQuery.
package bigquery

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Table names inside the dataset.
const (
	receiptsTable       = "receipts"
	transactionsTable   = "transactions"
	extractionRunsTable = "extraction_runs"
)

const numericScale = 9

// Dataset identifies the project and dataset holding the tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the backtick-quoted fully qualified name of a table.
func (d Dataset) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

func toNumeric(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// fromNumeric converts a NUMERIC column back to a decimal. A NULL column is zero.
func fromNumeric(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero
	}
	return d
}
