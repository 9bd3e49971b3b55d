package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func tx(id, date string, typ core.TransactionType, category, amount string, cur core.Currency) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:          core.ID(id),
		Description: "tx " + id,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Category:    category,
		Date:        d,
		Currency:    cur,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFilter(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-03-01", core.Income, "salary", "1000", core.USD),
		tx("2", "2024-03-05", core.Expense, "food-dining", "20", core.USD),
		tx("3", "2024-02-10", core.Expense, "housing", "800", core.USD),
		tx("4", "2024-03-05", core.Expense, "shopping", "15", core.USD),
	}
	txs[3].Description = "Food processor"

	tests := []struct {
		name     string
		criteria Criteria
		want     []core.ID
	}{
		{"no constraints sorts newest first", Criteria{Type: All, Category: All}, []core.ID{"2", "4", "1", "3"}},
		{"search matches category", Criteria{Search: "food"}, []core.ID{"2", "4"}},
		{"search is case-insensitive", Criteria{Search: "FOOD PRO"}, []core.ID{"4"}},
		{"type filter", Criteria{Type: "income"}, []core.ID{"1"}},
		{"category filter", Criteria{Category: "housing"}, []core.ID{"3"}},
		{"month filter", Criteria{Month: "2024-02"}, []core.ID{"3"}},
		{"combined", Criteria{Type: "expense", Month: "2024-03", Search: "tx"}, []core.ID{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(txs, tt.criteria)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestFilterDoesNotReorderInput(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-01-01", core.Expense, "other", "1", core.USD),
		tx("2", "2024-02-01", core.Expense, "other", "1", core.USD),
	}
	Filter(txs, Criteria{})
	if txs[0].ID != "1" {
		t.Fatal("Filter mutated its input")
	}
}

func TestSummarize(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-03-01", core.Income, "salary", "1000", core.USD),
		tx("2", "2024-03-05", core.Expense, "food-dining", "200", core.USD),
	}

	usd := Summarize(txs, core.USD)
	if !usd.Income.Equal(dec("1000")) || !usd.Expenses.Equal(dec("200")) || !usd.Balance.Equal(dec("800")) {
		t.Errorf("USD summary = %+v", usd)
	}

	jpy := Summarize(txs, core.JPY)
	if !jpy.Income.Equal(dec("151670")) || !jpy.Expenses.Equal(dec("30334")) || !jpy.Balance.Equal(dec("121336")) {
		t.Errorf("JPY summary = %+v", jpy)
	}
}

func TestSummarizeIsAdditive(t *testing.T) {
	a := []core.Transaction{
		tx("1", "2024-03-01", core.Income, "salary", "1000", core.USD),
		tx("2", "2024-03-05", core.Expense, "food-dining", "3000", core.JPY),
	}
	b := []core.Transaction{
		tx("3", "2024-01-01", core.Expense, "housing", "750.25", core.USD),
		tx("4", "2024-02-01", core.Income, "gifts", "10000", core.JPY),
	}
	for _, display := range []core.Currency{core.USD, core.JPY} {
		whole := Summarize(append(append([]core.Transaction{}, a...), b...), display)
		parts := Summarize(a, display).Add(Summarize(b, display))
		if !whole.Income.Equal(parts.Income) || !whole.Expenses.Equal(parts.Expenses) || !whole.Balance.Equal(parts.Balance) {
			t.Errorf("%s: whole %+v != parts %+v", display, whole, parts)
		}
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx("1", "2024-03-01", core.Income, "salary", "1000", core.USD),
		tx("2", "2024-03-05", core.Expense, "food-dining", "200", core.USD),
		tx("3", "2024-01-10", core.Expense, "housing", "15167", core.JPY),
		tx("4", "2023-03-31", core.Expense, "housing", "999", core.USD), // outside 12-month window
	}

	got := MonthlyBreakdown(txs, core.USD, now, 0)
	if len(got) != 12 {
		t.Fatalf("got %d months, want 12", len(got))
	}
	if got[0].Month != "2023-04" || got[11].Month != "2024-03" {
		t.Fatalf("window = %s..%s", got[0].Month, got[11].Month)
	}
	if !got[11].Income.Equal(dec("1000")) || !got[11].Expenses.Equal(dec("200")) {
		t.Errorf("March totals = %+v", got[11])
	}
	if !got[10].Expenses.IsZero() || !got[10].Income.IsZero() {
		t.Errorf("February should be empty, got %+v", got[10])
	}
	if diff := got[9].Expenses.Sub(dec("100")).Abs(); diff.GreaterThan(dec("0.000001")) {
		t.Errorf("January expenses = %s, want ~100", got[9].Expenses)
	}
	if !got[11].Balance().Equal(dec("800")) {
		t.Errorf("March balance = %s", got[11].Balance())
	}
}

func TestMonthlyBreakdownCrossesYear(t *testing.T) {
	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got := MonthlyBreakdown(nil, core.USD, now, 3)
	want := []string{"2023-11", "2023-12", "2024-01"}
	for i, m := range got {
		if m.Month != want[i] {
			t.Errorf("month %d = %s, want %s", i, m.Month, want[i])
		}
	}
}

func TestCategoryTotals(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-03-01", core.Income, "salary", "1000", core.USD),
		tx("2", "2024-03-05", core.Expense, "food-dining", "20", core.USD),
		tx("3", "2024-03-06", core.Expense, "food-dining", "30", core.USD),
		tx("4", "2024-03-07", core.Expense, "shopping", "10", core.USD),
		tx("5", "2024-02-07", core.Expense, "shopping", "99", core.USD),
	}
	got := CategoryTotals(txs, "2024-03", core.USD)
	if len(got) != 2 {
		t.Fatalf("got %d categories, want 2: %v", len(got), got)
	}
	if !got["food-dining"].Equal(dec("50")) || !got["shopping"].Equal(dec("10")) {
		t.Errorf("totals = %v", got)
	}

	ranked := SortedCategoryAmounts(got)
	if ranked[0].Name != "food-dining" {
		t.Errorf("top category = %s", ranked[0].Name)
	}
}

func TestCategories(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-03-01", core.Expense, "shopping", "1", core.USD),
		tx("2", "2024-03-01", core.Expense, "food-dining", "1", core.USD),
		tx("3", "2024-03-01", core.Expense, "shopping", "1", core.USD),
	}
	got := Categories(txs)
	if len(got) != 2 || got[0] != "food-dining" || got[1] != "shopping" {
		t.Errorf("Categories = %v", got)
	}
}
