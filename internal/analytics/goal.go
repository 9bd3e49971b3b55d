package analytics

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// WarningPercentage is the consumption at which a goal enters the warning state.
const WarningPercentage = 90.0

// EvaluateGoal compares this month's spending against goal. An empty
// category evaluates all expenses; otherwise only that category's.
// A nil goal reports an inactive status.
func EvaluateGoal(goal *core.BudgetGoal, category string, txs []core.Transaction, display core.Currency, now time.Time) core.GoalStatus {
	if goal == nil {
		return core.GoalStatus{Category: category}
	}

	month := core.DateOf(now).MonthKey()
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.Date.MonthKey() != month {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		spent = spent.Add(core.Convert(tx.Amount, tx.Currency, display))
	}

	goalAmount := core.Convert(goal.Amount, goal.Currency, display)
	percentage := core.Percent(spent, goalAmount)
	return core.GoalStatus{
		Active:     true,
		Category:   category,
		Spent:      spent,
		GoalAmount: goalAmount,
		Percentage: percentage,
		Progress:   min(max(percentage, 0), 100),
		Warning:    percentage >= WarningPercentage,
	}
}

// EvaluateGoals evaluates the overall goal (when set) followed by the
// per-category goals in category order.
func EvaluateGoals(goals core.Goals, txs []core.Transaction, display core.Currency, now time.Time) []core.GoalStatus {
	var out []core.GoalStatus
	if goals.Overall != nil {
		out = append(out, EvaluateGoal(goals.Overall, "", txs, display, now))
	}
	categories := make([]string, 0, len(goals.ByCategory))
	for category := range goals.ByCategory {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	for _, category := range categories {
		out = append(out, EvaluateGoal(goals.Goal(category), category, txs, display, now))
	}
	return out
}
