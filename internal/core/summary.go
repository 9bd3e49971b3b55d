package core

import "github.com/shopspring/decimal"

// Summary is the income/expense/balance triple of a set of transactions.
type Summary struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// Add combines two summaries of disjoint transaction sets.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Income:   s.Income.Add(o.Income),
		Expenses: s.Expenses.Add(o.Expenses),
		Balance:  s.Balance.Add(o.Balance),
	}
}

// MonthTotals is one month of income and expenses.
type MonthTotals struct {
	Month    string // YYYY-MM
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

func (m MonthTotals) Balance() decimal.Decimal {
	return m.Income.Sub(m.Expenses)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryTrend is the top spending category of a month with its month-over-month change.
type CategoryTrend struct {
	Category string
	Amount   decimal.Decimal
	Change   float64 // percent
}

type TrendReport struct {
	MonthlyChange        float64 // percent
	AverageSpending      decimal.Decimal
	TopCategory          *CategoryTrend
	SavingsOpportunities []string
}

// GoalStatus reports consumption of a budget goal in the display currency.
type GoalStatus struct {
	Active     bool
	Category   string // empty for the overall goal
	Spent      decimal.Decimal
	GoalAmount decimal.Decimal
	Percentage float64 // raw, may exceed 100
	Progress   float64 // clamped to [0, 100]
	Warning    bool
}
