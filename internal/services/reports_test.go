package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/analytics"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/storage/memory"
)

func TestReports_Dashboard(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

	add := func(typ core.TransactionType, category, amount string, currency core.Currency, date core.Date) {
		t.Helper()
		_, err := ledger.AddTransaction(ctx, core.Transaction{
			Description: category,
			Amount:      decimal.RequireFromString(amount),
			Type:        typ,
			Category:    category,
			Date:        date,
			Currency:    currency,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(core.Income, "salary", "1000", core.USD, core.NewDate(2024, 3, 1))
	add(core.Expense, "food-dining", "15167", core.JPY, core.NewDate(2024, 3, 5))
	add(core.Expense, "food-dining", "50", core.USD, core.NewDate(2024, 2, 5))
	ledger.SetGoal(ctx, "", core.BudgetGoal{Amount: decimal.NewFromInt(200)})

	reports := NewReports(ledger, cache.NewLRUCache[Dashboard](8, time.Minute), 0)
	d := reports.Dashboard(now)

	if d.Month != "2024-03" || d.Currency != core.USD {
		t.Errorf("month=%s currency=%s", d.Month, d.Currency)
	}
	if !d.Summary.Income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("income = %s", d.Summary.Income)
	}
	if got := d.Summary.Expenses.Round(2); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expenses = %s, want 150", got)
	}
	if len(d.Monthly) != analytics.DefaultMonthsBack || d.Monthly[len(d.Monthly)-1].Month != "2024-03" {
		t.Errorf("monthly = %+v", d.Monthly)
	}
	if len(d.Categories) != 1 || d.Categories[0].Name != "food-dining" {
		t.Errorf("categories = %+v", d.Categories)
	}
	if d.Trends.TopCategory == nil || math.Abs(d.Trends.TopCategory.Change-100) > 1e-6 {
		t.Errorf("top category = %+v", d.Trends.TopCategory)
	}
	if len(d.Goals) != 1 || math.Abs(d.Goals[0].Percentage-50) > 1e-6 {
		t.Errorf("goals = %+v", d.Goals)
	}
}

type countingCache struct {
	cache.Cache[Dashboard]
	hits, misses int
}

func (c *countingCache) Get(key string) (Dashboard, bool) {
	d, ok := c.Cache.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return d, ok
}

func TestReports_CacheInvalidatedByRevision(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	c := &countingCache{Cache: cache.NewLRUCache[Dashboard](8, time.Minute)}
	reports := NewReports(ledger, c, 3)

	first := reports.Dashboard(now)
	reports.Dashboard(now)
	if c.hits != 1 || c.misses != 1 {
		t.Fatalf("hits=%d misses=%d", c.hits, c.misses)
	}
	if !first.Summary.Expenses.IsZero() {
		t.Errorf("expenses = %s", first.Summary.Expenses)
	}

	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 2)))
	d := reports.Dashboard(now)
	if c.misses != 2 {
		t.Errorf("mutation did not miss the cache")
	}
	if !d.Summary.Expenses.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("stale dashboard: expenses = %s", d.Summary.Expenses)
	}

	ledger.SetCurrency(ctx, core.JPY)
	if d := reports.Dashboard(now); d.Currency != core.JPY {
		t.Errorf("currency = %s", d.Currency)
	}
	if len(reports.Dashboard(now).Monthly) != 3 {
		t.Error("monthsBack not applied")
	}
}

func TestReports_ListAndUpcoming(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 9)))
	ledger.AddRule(ctx, rent())
	reports := NewReports(ledger, nil, 0)

	list := reports.List(analytics.Criteria{Search: "FOOD", Month: "2024-03"})
	if len(list) != 2 || list[0].Date.String() != "2024-03-09" {
		t.Errorf("list = %+v", list)
	}

	upcoming := reports.Upcoming(core.NewDate(2024, 3, 20))
	if len(upcoming) != 1 || upcoming[0].Next.String() != "2024-04-15" {
		t.Errorf("upcoming = %+v", upcoming)
	}
}
