package services

import (
	"fmt"
	"time"

	"budget/internal/analytics"
	"budget/internal/cache"
	"budget/internal/core"
)

// Dashboard is every derived view of the ledger for one month.
type Dashboard struct {
	Currency   core.Currency
	Month      string // YYYY-MM
	Summary    core.Summary
	Monthly    []core.MonthTotals
	Categories []core.CategoryAmount
	Trends     core.TrendReport
	Goals      []core.GoalStatus
}

// ScheduledRule pairs a recurring rule with its next occurrence.
type ScheduledRule struct {
	Rule core.RecurringRule
	Next core.Date
}

// Reports computes dashboards on demand. Results are cached per ledger
// revision, so a mutation makes every earlier entry unreachable.
type Reports struct {
	ledger     *LedgerService
	cache      cache.Cache[Dashboard]
	monthsBack int
}

// NewReports builds a report service. A nil cache disables memoisation.
func NewReports(ledger *LedgerService, c cache.Cache[Dashboard], monthsBack int) *Reports {
	if monthsBack <= 0 {
		monthsBack = analytics.DefaultMonthsBack
	}
	return &Reports{ledger: ledger, cache: c, monthsBack: monthsBack}
}

// Dashboard returns the views for the month containing now, in the ledger's
// display currency.
func (r *Reports) Dashboard(now time.Time) Dashboard {
	snap := r.ledger.Snapshot()
	month := core.DateOf(now).MonthKey()
	key := fmt.Sprintf("%d|%s|%s", snap.Revision, snap.Currency, month)

	if r.cache != nil {
		if d, ok := r.cache.Get(key); ok {
			return d
		}
	}

	d := buildDashboard(snap, now, r.monthsBack)
	if r.cache != nil {
		r.cache.Set(key, d)
	}
	return d
}

func buildDashboard(snap Snapshot, now time.Time, monthsBack int) Dashboard {
	display := snap.Currency
	month := core.DateOf(now).MonthKey()
	current := analytics.CategoryTotals(snap.Transactions, month, display)
	prior := analytics.CategoryTotals(snap.Transactions, core.MonthStart(now, -1).MonthKey(), display)
	monthly := analytics.MonthlyBreakdown(snap.Transactions, display, now, monthsBack)

	return Dashboard{
		Currency:   display,
		Month:      month,
		Summary:    analytics.Summarize(snap.Transactions, display),
		Monthly:    monthly,
		Categories: analytics.SortedCategoryAmounts(current),
		Trends:     analytics.Analyze(monthly, current, prior),
		Goals:      analytics.EvaluateGoals(snap.Goals, snap.Transactions, display, now),
	}
}

// List filters the ledger, most recent first.
func (r *Reports) List(c analytics.Criteria) []core.Transaction {
	return analytics.Filter(r.ledger.Transactions(), c)
}

// Upcoming lists every rule with its first occurrence after today.
func (r *Reports) Upcoming(today core.Date) []ScheduledRule {
	rules := r.ledger.Rules()
	out := make([]ScheduledRule, 0, len(rules))
	for _, rule := range rules {
		next, err := NextDate(rule, today)
		if err != nil {
			continue
		}
		out = append(out, ScheduledRule{Rule: rule, Next: next})
	}
	return out
}
