package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Thresholds for savings advice, in percent.
const (
	RisingSpendThreshold    = 10.0
	RisingCategoryThreshold = 15.0
)

const trendWindow = 3

// Analyze derives the trend report from a monthly breakdown (only the last
// three months are used) and the category totals of the last two months.
func Analyze(months []core.MonthTotals, current, prior map[string]decimal.Decimal) core.TrendReport {
	if len(months) > trendWindow {
		months = months[len(months)-trendWindow:]
	}

	report := core.TrendReport{AverageSpending: decimal.Zero}
	if len(months) == 0 {
		report.SavingsOpportunities = savingsOpportunities(report, core.MonthTotals{})
		return report
	}

	last := months[len(months)-1]
	if len(months) >= 2 {
		prev := months[len(months)-2]
		report.MonthlyChange = percentChange(prev.Expenses, last.Expenses)
	}

	total := decimal.Zero
	for _, m := range months {
		total = total.Add(m.Expenses)
	}
	report.AverageSpending = total.Div(decimal.NewFromInt(int64(len(months))))

	if ranked := SortedCategoryAmounts(current); len(ranked) > 0 {
		top := ranked[0]
		report.TopCategory = &core.CategoryTrend{
			Category: top.Name,
			Amount:   top.Amount,
			Change:   percentChange(prior[top.Name], top.Amount),
		}
	}

	report.SavingsOpportunities = savingsOpportunities(report, last)
	return report
}

// percentChange is (to-from)/from*100, or 0 when from is zero.
func percentChange(from, to decimal.Decimal) float64 {
	if from.IsZero() {
		return 0
	}
	return core.Percent(to.Sub(from), from)
}

func savingsOpportunities(report core.TrendReport, current core.MonthTotals) []string {
	var out []string
	if report.MonthlyChange > RisingSpendThreshold {
		out = append(out, fmt.Sprintf(
			"Your spending increased by %.1f%% compared to last month. Review recent expenses for cuts.",
			report.MonthlyChange))
	}
	if top := report.TopCategory; top != nil && top.Change > RisingCategoryThreshold {
		out = append(out, fmt.Sprintf(
			"Spending on %s is up %.1f%% from last month. Consider setting a limit for this category.",
			core.CategoryDisplayName(top.Category), top.Change))
	}
	if current.Expenses.GreaterThan(current.Income) {
		out = append(out,
			"This month's expenses exceed your income. Look for non-essential spending to reduce.")
	}
	if len(out) == 0 {
		out = append(out, "Great job! Your spending is stable. Keep up the good habits.")
	}
	return out
}
