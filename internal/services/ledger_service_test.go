package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/storage"
	"budget/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []core.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func newTestLedger(t *testing.T, store *memory.Store, opts ...Option) *LedgerService {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	ledger, err := NewLedgerService(context.Background(), store, core.USD, opts...)
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}
	return ledger
}

func coffee(date core.Date) core.Transaction {
	return core.Transaction{
		Description: "Coffee",
		Amount:      decimal.RequireFromString("4.50"),
		Type:        core.Expense,
		Category:    "food-dining",
		Date:        date,
	}
}

func TestLedgerService_AddTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &recordingPublisher{}
	ledger := newTestLedger(t, store, WithPublisher(pub))

	tx, err := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if tx.ID != "id-1" || tx.Currency != core.USD {
		t.Errorf("got %+v", tx)
	}
	if ledger.Revision() != 1 {
		t.Errorf("revision = %d, want 1", ledger.Revision())
	}

	// Persisted state reloads identically.
	reloaded := newTestLedger(t, store)
	if got := reloaded.Transactions(); len(got) != 1 || got[0].ID != "id-1" {
		t.Errorf("reloaded transactions = %+v", got)
	}
	if kinds := pub.kinds(); len(kinds) != 1 || kinds[0] != core.EventTransactionCreated {
		t.Errorf("events = %v", kinds)
	}
}

func TestLedgerService_AddTransactionInvalid(t *testing.T) {
	ledger := newTestLedger(t, memory.New())

	tx := coffee(core.NewDate(2024, 3, 1))
	tx.Amount = decimal.Zero
	if _, err := ledger.AddTransaction(context.Background(), tx); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}
	if len(ledger.Transactions()) != 0 || ledger.Revision() != 0 {
		t.Error("rejected transaction must not change the ledger")
	}
}

func TestLedgerService_PersistFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := newTestLedger(t, store)

	quota := errors.New("quota exceeded")
	store.SetFailWrites(quota)
	_, err := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	if !errors.Is(err, ErrPersist) || !errors.Is(err, quota) {
		t.Fatalf("error = %v, want ErrPersist wrapping the store error", err)
	}
	if len(ledger.Transactions()) != 1 {
		t.Error("in-memory state must stay authoritative after a failed save")
	}
}

func TestLedgerService_PersistFailurePublishesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &recordingPublisher{}
	ledger := newTestLedger(t, store, WithPublisher(pub))

	tx, err := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatal(err)
	}
	rule, _, err := ledger.AddRule(ctx, rent())
	if err != nil {
		t.Fatal(err)
	}
	committed := len(pub.kinds())

	store.SetFailWrites(errors.New("disk full"))
	mutations := []struct {
		name   string
		mutate func() error
	}{
		{"add transaction", func() error {
			_, err := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 2)))
			return err
		}},
		{"delete transaction", func() error { return ledger.DeleteTransaction(ctx, tx.ID) }},
		{"add rule", func() error {
			r := rent()
			r.ID = ""
			_, _, err := ledger.AddRule(ctx, r)
			return err
		}},
		{"delete rule", func() error { return ledger.DeleteRule(ctx, rule.ID) }},
		{"import", func() error {
			_, err := ledger.Import(ctx, strings.NewReader(`[]`))
			return err
		}},
	}
	for _, m := range mutations {
		if err := m.mutate(); !errors.Is(err, ErrPersist) {
			t.Errorf("%s: error = %v, want ErrPersist", m.name, err)
		}
	}
	if kinds := pub.kinds(); len(kinds) != committed {
		t.Errorf("uncommitted mutations published %v", kinds[committed:])
	}
}

func TestLedgerService_PublishFailureIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	ledger := newTestLedger(t, memory.New(), WithPublisher(pub))
	if _, err := ledger.AddTransaction(context.Background(), coffee(core.NewDate(2024, 3, 1))); err != nil {
		t.Errorf("publish failure leaked into mutation: %v", err)
	}
}

func TestLedgerService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	tx, _ := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))

	if err := ledger.DeleteTransaction(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := ledger.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(ledger.Transactions()) != 0 {
		t.Error("transaction not removed")
	}
}

func TestLedgerService_AccessorsReturnCopies(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	ledger.SetGoal(ctx, "", core.BudgetGoal{Amount: decimal.NewFromInt(500)})

	txs := ledger.Transactions()
	txs[0].Description = "mutated"
	goals := ledger.Goals()
	goals.Overall.Amount = decimal.NewFromInt(1)

	if ledger.Transactions()[0].Description != "Coffee" {
		t.Error("Transactions() exposes internal slice")
	}
	if !ledger.Goals().Overall.Amount.Equal(decimal.NewFromInt(500)) {
		t.Error("Goals() exposes internal goal")
	}
}

func TestLedgerService_AddRuleCatchesUpToFence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := newTestLedger(t, store)
	processor := NewRecurringProcessor(ledger)

	if _, err := processor.ProcessDue(ctx, core.NewDate(2024, 4, 10)); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}

	rule, caughtUp, err := ledger.AddRule(ctx, rent())
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if rule.Currency != core.USD {
		t.Errorf("rule currency = %q", rule.Currency)
	}
	if len(caughtUp) != 3 {
		t.Fatalf("caught up %d occurrences, want 3", len(caughtUp))
	}

	// The April occurrence is not due until the 15th.
	n, err := processor.ProcessDue(ctx, core.NewDate(2024, 4, 11))
	if err != nil || n != 0 {
		t.Fatalf("ProcessDue = %d, %v", n, err)
	}
	n, err = processor.ProcessDue(ctx, core.NewDate(2024, 4, 15))
	if err != nil || n != 1 {
		t.Fatalf("ProcessDue = %d, %v; want 1", n, err)
	}
	if got := len(ledger.Transactions()); got != 4 {
		t.Errorf("ledger holds %d transactions, want 4", got)
	}
}

func TestLedgerService_AddRuleBeforeFirstRun(t *testing.T) {
	ledger := newTestLedger(t, memory.New())
	_, caughtUp, err := ledger.AddRule(context.Background(), rent())
	if err != nil {
		t.Fatal(err)
	}
	if len(caughtUp) != 0 {
		t.Errorf("nothing should be materialized before the first processing run, got %d", len(caughtUp))
	}
}

func TestLedgerService_DeleteRuleKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	rule, _, _ := ledger.AddRule(ctx, rent())
	NewRecurringProcessor(ledger).ProcessDue(ctx, core.NewDate(2024, 2, 20))

	if err := ledger.DeleteRule(ctx, rule.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if err := ledger.DeleteRule(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	if len(ledger.Rules()) != 0 || len(ledger.Transactions()) != 2 {
		t.Errorf("rules=%d transactions=%d", len(ledger.Rules()), len(ledger.Transactions()))
	}
}

func TestLedgerService_Goals(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := newTestLedger(t, store)

	if err := ledger.SetGoal(ctx, "", core.BudgetGoal{Amount: decimal.NewFromInt(500)}); err != nil {
		t.Fatalf("SetGoal overall: %v", err)
	}
	if err := ledger.SetGoal(ctx, "food-dining", core.BudgetGoal{Amount: decimal.NewFromInt(20000), Currency: core.JPY}); err != nil {
		t.Fatalf("SetGoal category: %v", err)
	}
	if err := ledger.SetGoal(ctx, "salary", core.BudgetGoal{Amount: decimal.NewFromInt(1)}); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("income category goal error = %v", err)
	}
	if err := ledger.SetGoal(ctx, "", core.BudgetGoal{Amount: decimal.NewFromInt(-5)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative goal error = %v", err)
	}

	reloaded := newTestLedger(t, store).Goals()
	if reloaded.Overall == nil || reloaded.Overall.Currency != core.USD {
		t.Errorf("overall = %+v", reloaded.Overall)
	}
	if g := reloaded.Goal("food-dining"); g == nil || g.Currency != core.JPY {
		t.Errorf("food-dining = %+v", g)
	}

	if err := ledger.ClearGoal(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := ledger.ClearGoal(ctx, "transportation"); err != nil {
		t.Errorf("clearing an unset goal: %v", err)
	}
	if ledger.Goals().Overall != nil {
		t.Error("overall goal not cleared")
	}
	if _, err := store.Get(ctx, storage.KeyMonthlyBudget); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cleared overall goal still stored: %v", err)
	}
	if newTestLedger(t, store).Goals().Overall != nil {
		t.Error("cleared goal persisted")
	}
}

func TestLedgerService_SetCurrency(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := newTestLedger(t, store)

	if err := ledger.SetCurrency(ctx, "EUR"); !errors.Is(err, core.ErrInvalidCurrency) {
		t.Errorf("error = %v, want ErrInvalidCurrency", err)
	}
	if err := ledger.SetCurrency(ctx, core.JPY); err != nil {
		t.Fatal(err)
	}
	if got := newTestLedger(t, store).Currency(); got != core.JPY {
		t.Errorf("reloaded currency = %q", got)
	}

	// New records default to the display currency.
	tx, _ := ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	if tx.Currency != core.JPY {
		t.Errorf("transaction currency = %q", tx.Currency)
	}
}

func TestLedgerService_ExportImport(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 2)))

	var buf bytes.Buffer
	if err := ledger.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	var exported []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil || len(exported) != 2 {
		t.Fatalf("export is not a 2-element array: %v\n%s", err, buf.String())
	}

	other := newTestLedger(t, memory.New())
	n, err := other.Import(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if got := other.Transactions(); got[1].Date.String() != "2024-03-02" || got[1].Currency != core.USD {
		t.Errorf("imported %+v", got[1])
	}
}

func TestLedgerService_ExportImportMaterialized(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	rule := rent()
	rule.Description = strings.Repeat("r", 195)
	if _, _, err := ledger.AddRule(ctx, rule); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if _, err := NewRecurringProcessor(ledger).ProcessDue(ctx, core.NewDate(2024, 2, 20)); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}

	var buf bytes.Buffer
	if err := ledger.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	other := newTestLedger(t, memory.New())
	n, err := other.Import(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if got := other.Transactions()[0].Description; got != core.RecurringPrefix+rule.Description {
		t.Errorf("description = %q", got)
	}
}

func TestLedgerService_ImportKeepsLegacyRecords(t *testing.T) {
	ledger := newTestLedger(t, memory.New())
	doc := `[{"id": 7, "description": "", "amount": 0, "type": "expense", "category": "groceries", "date": "2023-12-31"}]`
	n, err := ledger.Import(context.Background(), strings.NewReader(doc))
	if err != nil || n != 1 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if tx := ledger.Transactions()[0]; tx.Category != "groceries" || tx.Currency != core.USD {
		t.Errorf("imported %+v", tx)
	}
}

func TestLedgerService_ImportTolerantJSON(t *testing.T) {
	ledger := newTestLedger(t, memory.New())
	doc := `[
		// exported from the browser
		{"id": 1709251200000, "description": "Salary", "amount": 3000, "type": "income", "category": "salary", "date": "2024-03-01"},
		{"description": "Bus", "amount": 2.75, "type": "expense", "category": "transportation", "date": "2024-03-02",},
	]`
	n, err := ledger.Import(context.Background(), strings.NewReader(doc))
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	txs := ledger.Transactions()
	if txs[0].ID != "1709251200000" || txs[1].ID == "" {
		t.Errorf("ids = %q, %q", txs[0].ID, txs[1].ID)
	}
}

func TestLedgerService_ImportAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t, memory.New())
	ledger.AddTransaction(ctx, coffee(core.NewDate(2024, 3, 1)))
	before := ledger.Revision()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: `[{"description": `},
		{name: "not an array", doc: `{"description": "x"}`},
		{name: "null", doc: `null`},
		{name: "unknown type", doc: `[{"description": "x", "amount": 1, "type": "transfer", "category": "other", "date": "2024-03-01"}]`},
		{name: "missing date", doc: `[{"description": "x", "amount": 1, "type": "expense", "category": "other"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Import(ctx, strings.NewReader(tt.doc))
			if !errors.Is(err, ErrImport) {
				t.Fatalf("error = %v, want ErrImport", err)
			}
			if got := ledger.Transactions(); len(got) != 1 || got[0].Description != "Coffee" {
				t.Errorf("ledger changed: %+v", got)
			}
			if ledger.Revision() != before {
				t.Error("revision changed")
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "budget_data_2024-03-09.json" {
		t.Errorf("ExportFileName() = %q", got)
	}
}

func TestNewLedgerServiceCorruptStore(t *testing.T) {
	store := memory.New()
	store.Put(context.Background(), storage.Entry{Key: storage.KeyRecurring, Value: []byte("{")})
	if _, err := NewLedgerService(context.Background(), store, core.USD); err == nil {
		t.Error("expected load error")
	}
}
