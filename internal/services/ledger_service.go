package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

var (
	// ErrPersist wraps storage failures. The in-memory state has already
	// been updated when it is returned.
	ErrPersist  = errors.New("persist ledger state")
	ErrImport   = errors.New("import ledger")
	ErrNotFound = errors.New("not found")
)

// EventPublisher announces committed ledger mutations.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event core.LedgerEvent) error
}

// Snapshot is a consistent copy of the ledger at one revision.
type Snapshot struct {
	Transactions       []core.Transaction
	Rules              []core.RecurringRule
	Goals              core.Goals
	Currency           core.Currency
	LastRecurringCheck core.Date
	Revision           uint64
}

// LedgerService owns the in-memory ledger and mirrors every mutation to a
// storage.KV. It is safe for concurrent use.
type LedgerService struct {
	kv              storage.KV
	publisher       EventPublisher
	newID           core.IDGenerator
	defaultCurrency core.Currency

	mu       sync.RWMutex
	state    storage.State
	revision uint64
}

type Option func(*LedgerService)

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithIDGenerator(gen core.IDGenerator) Option {
	return func(s *LedgerService) { s.newID = gen }
}

// NewLedgerService loads the persisted state from kv.
func NewLedgerService(ctx context.Context, kv storage.KV, defaultCurrency core.Currency, opts ...Option) (*LedgerService, error) {
	state, err := storage.LoadState(ctx, kv, defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	s := &LedgerService{
		kv:              kv,
		newID:           core.NewID,
		defaultCurrency: defaultCurrency,
		state:           state,
	}
	for _, opt := range opts {
		opt(s)
	}

	slog.InfoContext(ctx, "Ledger loaded",
		"transactions", len(state.Transactions),
		"rules", len(state.Rules),
		"currency", state.Currency,
		"last_recurring_check", state.LastRecurringCheck.String())
	return s, nil
}

func (s *LedgerService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Transactions:       slices.Clone(s.state.Transactions),
		Rules:              slices.Clone(s.state.Rules),
		Goals:              s.state.Goals.Clone(),
		Currency:           s.state.Currency,
		LastRecurringCheck: s.state.LastRecurringCheck,
		Revision:           s.revision,
	}
}

func (s *LedgerService) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Transactions)
}

func (s *LedgerService) Rules() []core.RecurringRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Rules)
}

func (s *LedgerService) Goals() core.Goals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Goals.Clone()
}

func (s *LedgerService) Currency() core.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Currency
}

// Revision increases on every change that can alter a report.
func (s *LedgerService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// AddTransaction validates tx, assigns an id when it has none and appends it.
// A transaction without a currency takes the current display currency.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	tx.Currency = tx.Currency.Or(s.state.Currency)
	if err := tx.Validate(); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	s.state.Transactions = append(s.state.Transactions, tx)
	s.revision++
	err := s.saveLocked(ctx, new(storage.Batch).Transactions(s.state.Transactions))
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, core.NewLedgerEvent(core.EventTransactionCreated, tx.ID))
	}
	return tx, err
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	i := slices.IndexFunc(s.state.Transactions, func(tx core.Transaction) bool { return tx.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	s.state.Transactions = slices.Delete(s.state.Transactions, i, i+1)
	s.revision++
	err := s.saveLocked(ctx, new(storage.Batch).Transactions(s.state.Transactions))
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, core.NewLedgerEvent(core.EventTransactionDeleted, id))
	}
	return err
}

// AddRule stores a recurring rule. Occurrences on or before the last
// processing date are materialized immediately, since later processing
// only covers dates after it.
func (s *LedgerService) AddRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, []core.Transaction, error) {
	s.mu.Lock()
	rule.Currency = rule.Currency.Or(s.state.Currency)
	if err := rule.Validate(); err != nil {
		s.mu.Unlock()
		return core.RecurringRule{}, nil, err
	}
	if rule.ID == "" {
		rule.ID = s.newID()
	}

	var caughtUp []core.Transaction
	if fence := s.state.LastRecurringCheck; !fence.IsZero() {
		var err error
		caughtUp, err = Materialize(rule, core.Date{}, fence, s.newID)
		if err != nil {
			s.mu.Unlock()
			return core.RecurringRule{}, nil, err
		}
	}

	s.state.Rules = append(s.state.Rules, rule)
	batch := new(storage.Batch).Rules(s.state.Rules)
	if len(caughtUp) > 0 {
		s.state.Transactions = append(s.state.Transactions, caughtUp...)
		s.revision++
		batch.Transactions(s.state.Transactions)
	}
	err := s.saveLocked(ctx, batch)
	s.mu.Unlock()
	if err != nil {
		return rule, caughtUp, err
	}

	s.publish(ctx, core.NewLedgerEvent(core.EventRuleCreated, rule.ID))
	if len(caughtUp) > 0 {
		s.publish(ctx, core.NewLedgerEvent(core.EventRecurringMaterialized, transactionIDs(caughtUp)...))
	}
	return rule, caughtUp, nil
}

// DeleteRule stops future materialization. Transactions already
// materialized from the rule are kept.
func (s *LedgerService) DeleteRule(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	i := slices.IndexFunc(s.state.Rules, func(r core.RecurringRule) bool { return r.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("recurring rule %s: %w", id, ErrNotFound)
	}
	s.state.Rules = slices.Delete(s.state.Rules, i, i+1)
	err := s.saveLocked(ctx, new(storage.Batch).Rules(s.state.Rules))
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, core.NewLedgerEvent(core.EventRuleDeleted, id))
	}
	return err
}

// SetGoal sets the overall monthly goal when category is empty, otherwise
// the goal of that expense category.
func (s *LedgerService) SetGoal(ctx context.Context, category string, goal core.BudgetGoal) error {
	if category != "" && !core.ValidCategory(core.Expense, category) {
		return fmt.Errorf("%w: %q", core.ErrInvalidCategory, category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	goal.Currency = goal.Currency.Or(s.state.Currency)
	if err := goal.Validate(); err != nil {
		return err
	}

	if category == "" {
		s.state.Goals.Overall = &goal
	} else {
		if s.state.Goals.ByCategory == nil {
			s.state.Goals.ByCategory = map[string]core.BudgetGoal{}
		}
		s.state.Goals.ByCategory[category] = goal
	}
	s.revision++
	return s.saveLocked(ctx, new(storage.Batch).Goals(s.state.Goals))
}

// ClearGoal removes a goal. Clearing a goal that is not set is a no-op.
func (s *LedgerService) ClearGoal(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Goals.Goal(category) == nil {
		return nil
	}
	s.revision++
	if category == "" {
		s.state.Goals.Overall = nil
		if err := s.kv.Delete(ctx, storage.KeyMonthlyBudget); err != nil {
			slog.ErrorContext(ctx, "Failed to persist ledger state", "error", err)
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
		return nil
	}
	delete(s.state.Goals.ByCategory, category)
	return s.saveLocked(ctx, new(storage.Batch).Goals(s.state.Goals))
}

func (s *LedgerService) SetCurrency(ctx context.Context, c core.Currency) error {
	if !c.Supported() {
		return fmt.Errorf("%w: %q", core.ErrInvalidCurrency, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Currency == c {
		return nil
	}
	s.state.Currency = c
	s.revision++
	return s.saveLocked(ctx, new(storage.Batch).Currency(c))
}

// ExportFileName names an export taken on day.
func ExportFileName(day time.Time) string {
	return "budget_data_" + core.DateOf(day).String() + ".json"
}

// Export writes the full transaction list as an indented JSON array.
func (s *LedgerService) Export(w io.Writer) error {
	txs := s.Transactions()
	if txs == nil {
		txs = []core.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}
	slog.Debug("Ledger exported", log.FieldOperation, log.OpExport, log.FieldCount, len(txs))
	return nil
}

// Import replaces the transaction list with the JSON array read from r.
// Comments and trailing commas are tolerated. Records are taken as exported:
// missing ids are assigned and missing currencies take the default. Only a
// record the reports cannot place (unknown type, missing date) rejects the
// file, and then nothing changes.
func (s *LedgerService) Import(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("%w: read: %w", ErrImport, err)
	}

	var txs []core.Transaction
	if err := json.Unmarshal(jsonc.ToJSON(data), &txs); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImport, err)
	}
	if txs == nil {
		return 0, fmt.Errorf("%w: expected a JSON array of transactions", ErrImport)
	}

	storage.ApplyDefaultCurrency(txs, s.defaultCurrency)
	for i := range txs {
		if err := txs[i].Reportable(); err != nil {
			return 0, fmt.Errorf("%w: record %d: %w", ErrImport, i, err)
		}
		if txs[i].ID == "" {
			txs[i].ID = s.newID()
		}
	}

	s.mu.Lock()
	s.state.Transactions = txs
	s.revision++
	err = s.saveLocked(ctx, new(storage.Batch).Transactions(txs))
	s.mu.Unlock()
	if err != nil {
		return len(txs), err
	}

	slog.InfoContext(ctx, "Ledger imported", log.FieldOperation, log.OpImport, log.FieldCount, len(txs))
	s.publish(ctx, core.LedgerEvent{
		Kind:      core.EventLedgerImported,
		Count:     len(txs),
		Timestamp: time.Now().UTC(),
	})
	return len(txs), nil
}

// reloadLocked replaces the in-memory ledger with what the store holds,
// leaving it untouched when the store cannot be read. Callers hold s.mu.
func (s *LedgerService) reloadLocked(ctx context.Context) error {
	state, err := storage.LoadState(ctx, s.kv, s.defaultCurrency)
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	s.state = state
	s.revision++
	return nil
}

// saveLocked writes batch in one Put. Callers hold s.mu.
func (s *LedgerService) saveLocked(ctx context.Context, batch *storage.Batch) error {
	entries, err := batch.Entries()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.kv.Put(ctx, entries...); err != nil {
		slog.ErrorContext(ctx, "Failed to persist ledger state", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, event core.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind, "count", event.Count, "error", err)
	}
}

func transactionIDs(txs []core.Transaction) []core.ID {
	ids := make([]core.ID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}
