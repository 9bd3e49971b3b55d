package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"budget/internal/core"
)

// State is the complete persisted ledger.
type State struct {
	Transactions       []core.Transaction
	Rules              []core.RecurringRule
	Goals              core.Goals
	Currency           core.Currency
	LastRecurringCheck core.Date // zero when never processed
}

// LoadState reads every key. Missing keys yield empty values; records
// without a currency take defaultCurrency.
func LoadState(ctx context.Context, kv KV, defaultCurrency core.Currency) (State, error) {
	state := State{Currency: defaultCurrency}

	if err := getJSON(ctx, kv, KeyTransactions, &state.Transactions); err != nil {
		return State{}, err
	}
	if err := getJSON(ctx, kv, KeyRecurring, &state.Rules); err != nil {
		return State{}, err
	}

	var overall *core.BudgetGoal
	if err := getJSON(ctx, kv, KeyMonthlyBudget, &overall); err != nil {
		return State{}, err
	}
	state.Goals.Overall = overall
	if err := getJSON(ctx, kv, KeyCategoryGoals, &state.Goals.ByCategory); err != nil {
		return State{}, err
	}

	var currency core.Currency
	if err := getJSON(ctx, kv, KeyCurrency, &currency); err != nil {
		return State{}, err
	}
	if currency.Supported() {
		state.Currency = currency
	}

	var fence string
	if err := getJSON(ctx, kv, KeyLastRecurringCheck, &fence); err != nil {
		return State{}, err
	}
	if fence != "" {
		d, err := core.ParseDate(fence)
		if err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyLastRecurringCheck, err)
		}
		state.LastRecurringCheck = d
	}

	ApplyDefaultCurrency(state.Transactions, defaultCurrency)
	for i := range state.Rules {
		state.Rules[i].Currency = state.Rules[i].Currency.Or(defaultCurrency)
	}
	return state, nil
}

// ApplyDefaultCurrency fills in the currency of legacy records in place.
func ApplyDefaultCurrency(txs []core.Transaction, c core.Currency) {
	for i := range txs {
		txs[i].Currency = txs[i].Currency.Or(c)
	}
}

func getJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func jsonEntry(key string, v any) (Entry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Entry{Key: key, Value: data}, nil
}

// Batch accumulates encoded entries for a single Put. The first encoding
// error is kept and reported by Entries.
type Batch struct {
	entries []Entry
	err     error
}

func (b *Batch) add(key string, v any) *Batch {
	if b.err != nil {
		return b
	}
	e, err := jsonEntry(key, v)
	if err != nil {
		b.err = err
		return b
	}
	b.entries = append(b.entries, e)
	return b
}

func (b *Batch) Transactions(txs []core.Transaction) *Batch {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return b.add(KeyTransactions, txs)
}

func (b *Batch) Rules(rules []core.RecurringRule) *Batch {
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	return b.add(KeyRecurring, rules)
}

// Goals encodes the per-category goals, and the overall goal when one is
// set. Removing the overall goal is a Delete of KeyMonthlyBudget.
func (b *Batch) Goals(goals core.Goals) *Batch {
	byCategory := goals.ByCategory
	if byCategory == nil {
		byCategory = map[string]core.BudgetGoal{}
	}
	if goals.Overall != nil {
		b.add(KeyMonthlyBudget, goals.Overall)
	}
	return b.add(KeyCategoryGoals, byCategory)
}

func (b *Batch) Currency(c core.Currency) *Batch {
	return b.add(KeyCurrency, c)
}

// Fence records the last date recurring rules were processed through.
func (b *Batch) Fence(d core.Date) *Batch {
	return b.add(KeyLastRecurringCheck, d.String())
}

func (b *Batch) Entries() ([]Entry, error) {
	return b.entries, b.err
}
