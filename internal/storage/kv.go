// Package storage persists ledger state as JSON values under fixed keys.
package storage

import (
	"context"
	"errors"
)

// Persisted keys.
const (
	KeyTransactions       = "budgetTransactions"
	KeyRecurring          = "recurringTransactions"
	KeyMonthlyBudget      = "monthlyBudget"
	KeyCategoryGoals      = "budgetGoals"
	KeyCurrency           = "currentCurrency"
	KeyLastRecurringCheck = "lastRecurringCheck"
)

var ErrNotFound = errors.New("key not found")

// Entry is one key/value pair to write.
type Entry struct {
	Key   string
	Value []byte
}

// KV is a durable key/value store.
type KV interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes all entries atomically.
	Put(ctx context.Context, entries ...Entry) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
