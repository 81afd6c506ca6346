package extraction

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestSummarize(t *testing.T) {
	day := civil.Date{Year: 2024, Month: 1, Day: 5}
	records := []TransactionRecord{
		{Date: day, Description: "Salary", Amount: decimal.RequireFromString("1500.00"), Type: TransactionIncome},
		{Date: day, Description: "Salary", Amount: decimal.RequireFromString("500.00"), Type: TransactionIncome},
		{Date: day, Description: "Refund", Amount: decimal.RequireFromString("20.00"), Type: TransactionIncome},
		{Date: day, Description: "Coffee", Amount: decimal.RequireFromString("4.75"), Type: TransactionExpense, Category: CategoryFood},
		{Date: day, Description: "Lunch", Amount: decimal.RequireFromString("15.25"), Type: TransactionExpense, Category: CategoryFood},
		{Date: day, Description: "ATM", Amount: decimal.RequireFromString("60.00"), Type: TransactionExpense},
	}

	s := Summarize(records)

	assertDecimal(t, "TotalIncome", s.TotalIncome, "2020.00")
	assertDecimal(t, "TotalExpense", s.TotalExpense, "80.00")
	assertDecimal(t, "NetBalance", s.NetBalance, "1940.00")
	assertDecimal(t, "IncomeBySource[Salary]", s.IncomeBySource["Salary"], "2000.00")
	assertDecimal(t, "IncomeBySource[Refund]", s.IncomeBySource["Refund"], "20.00")
	assertDecimal(t, "ExpenseByCategory[Food]", s.ExpenseByCategory[CategoryFood], "20.00")
	assertDecimal(t, "ExpenseByCategory[Other]", s.ExpenseByCategory[CategoryOther], "60.00")

	if s.TransactionCount != 6 {
		t.Errorf("TransactionCount = %d, want 6", s.TransactionCount)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	if !s.TotalIncome.IsZero() || !s.TotalExpense.IsZero() || !s.NetBalance.IsZero() {
		t.Errorf("Summarize(nil) totals = %s/%s/%s, want zeros", s.TotalIncome, s.TotalExpense, s.NetBalance)
	}
	if s.IncomeBySource == nil || s.ExpenseByCategory == nil {
		t.Error("Summarize(nil) maps should be empty, not nil")
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
