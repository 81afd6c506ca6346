package extraction

import "github.com/shopspring/decimal"

// Summary aggregates a set of statement transactions.
type Summary struct {
	TotalIncome       decimal.Decimal            `json:"totalIncome"`
	TotalExpense      decimal.Decimal            `json:"totalExpense"`
	NetBalance        decimal.Decimal            `json:"netBalance"`
	IncomeBySource    map[string]decimal.Decimal `json:"incomeBySource"`
	ExpenseByCategory map[string]decimal.Decimal `json:"expenseByCategory"`
	TransactionCount  int                        `json:"transactionCount"`
}

// Summarize totals income by description and expenses by category.
// Expenses without a category are counted as Other.
func Summarize(records []TransactionRecord) Summary {
	s := Summary{
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		IncomeBySource:    map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
		TransactionCount:  len(records),
	}

	for _, r := range records {
		amount := r.Amount.Abs()
		switch r.Type {
		case TransactionIncome:
			s.TotalIncome = s.TotalIncome.Add(amount)
			s.IncomeBySource[r.Description] = s.IncomeBySource[r.Description].Add(amount)
		case TransactionExpense:
			category := r.Category
			if category == "" {
				category = CategoryOther
			}
			s.TotalExpense = s.TotalExpense.Add(amount)
			s.ExpenseByCategory[category] = s.ExpenseByCategory[category].Add(amount)
		}
	}

	s.NetBalance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}
