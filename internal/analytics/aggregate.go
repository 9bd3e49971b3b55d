// Package analytics computes summaries, breakdowns, trends and goal
// progress over a ledger. Every function is pure: it reads the transactions
// it is given and never touches storage.
package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// DefaultMonthsBack is the length of the monthly breakdown window.
const DefaultMonthsBack = 12

// All matches every value of a filter field.
const All = "all"

// Criteria narrows a transaction list. Empty or "all" fields do not constrain.
type Criteria struct {
	Search   string
	Type     string
	Category string
	Month    string // YYYY-MM
}

func (c Criteria) matches(tx core.Transaction) bool {
	if c.Search != "" {
		needle := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(tx.Description), needle) &&
			!strings.Contains(strings.ToLower(tx.Category), needle) {
			return false
		}
	}
	if c.Type != "" && c.Type != All && string(tx.Type) != c.Type {
		return false
	}
	if c.Category != "" && c.Category != All && tx.Category != c.Category {
		return false
	}
	if c.Month != "" && !strings.HasPrefix(tx.Date.String(), c.Month) {
		return false
	}
	return true
}

// Filter returns the matching transactions, most recent first.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if c.matches(tx) {
			out = append(out, tx)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}

// Summarize totals income and expenses in the display currency.
func Summarize(txs []core.Transaction, display core.Currency) core.Summary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		amount := core.Convert(tx.Amount, tx.Currency, display)
		switch tx.Type {
		case core.Income:
			income = income.Add(amount)
		case core.Expense:
			expenses = expenses.Add(amount)
		}
	}
	return core.Summary{
		Income:   income,
		Expenses: expenses,
		Balance:  income.Sub(expenses),
	}
}

// MonthlyBreakdown returns monthsBack calendar months ending with the month
// of now, oldest first. Months without activity are included with zero totals.
func MonthlyBreakdown(txs []core.Transaction, display core.Currency, now time.Time, monthsBack int) []core.MonthTotals {
	if monthsBack <= 0 {
		monthsBack = DefaultMonthsBack
	}
	out := make([]core.MonthTotals, monthsBack)
	index := make(map[string]int, monthsBack)
	for i := range out {
		month := core.MonthStart(now, i-monthsBack+1).MonthKey()
		out[i] = core.MonthTotals{Month: month, Income: decimal.Zero, Expenses: decimal.Zero}
		index[month] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.Date.MonthKey()]
		if !ok {
			continue
		}
		amount := core.Convert(tx.Amount, tx.Currency, display)
		switch tx.Type {
		case core.Income:
			out[i].Income = out[i].Income.Add(amount)
		case core.Expense:
			out[i].Expenses = out[i].Expenses.Add(amount)
		}
	}
	return out
}

// CategoryTotals sums expenses per category for one YYYY-MM month.
func CategoryTotals(txs []core.Transaction, month string, display core.Currency) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.Date.MonthKey() != month {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(core.Convert(tx.Amount, tx.Currency, display))
	}
	return out
}

// SortedCategoryAmounts orders category totals by amount descending, then name.
func SortedCategoryAmounts(totals map[string]decimal.Decimal) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Categories lists the distinct categories used by txs, sorted.
func Categories(txs []core.Transaction) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	slices.Sort(out)
	return out
}
