package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

// RecurringProcessor materializes due occurrences of recurring rules into
// the ledger.
type RecurringProcessor struct {
	ledger *LedgerService
}

func NewRecurringProcessor(ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{ledger: ledger}
}

// ProcessDue materializes every occurrence after the last processing date
// and on or before today. It does nothing when rules were already
// processed through today.
//
// The new transactions and the advanced processing date are written in a
// single Put. If that write fails the ledger is left exactly as it was, so
// the next run covers the same window again.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today core.Date) (int, error) {
	return p.process(ctx, today, false)
}

// ReloadAndProcessDue is ProcessDue on the ledger as currently stored. The
// reload and the write happen under one hold of the ledger lock, so a
// long-lived worker never writes back a transaction list that another
// process has since changed.
func (p *RecurringProcessor) ReloadAndProcessDue(ctx context.Context, today core.Date) (int, error) {
	return p.process(ctx, today, true)
}

func (p *RecurringProcessor) process(ctx context.Context, today core.Date, reload bool) (int, error) {
	if p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	s := p.ledger

	s.mu.Lock()
	if reload {
		if err := s.reloadLocked(ctx); err != nil {
			s.mu.Unlock()
			return 0, err
		}
	}
	fence := s.state.LastRecurringCheck
	if !fence.IsZero() && !today.After(fence) {
		s.mu.Unlock()
		slog.DebugContext(ctx, "Recurring rules already processed",
			"last_recurring_check", fence.String(),
			"today", today.String())
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"total_rules", len(s.state.Rules),
		"from", fence.String(),
		"through", today.String())

	var batch []core.Transaction
	for _, rule := range s.state.Rules {
		txs, err := Materialize(rule, fence, today, s.newID)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring rule",
				log.FieldRuleID, rule.ID,
				"description", rule.Description,
				"error", err)
			continue
		}
		for _, tx := range txs {
			slog.DebugContext(ctx, "Materialized recurring transaction",
				log.FieldRuleID, rule.ID,
				log.FieldTransactionID, tx.ID,
				"date", tx.Date.String(),
				"frequency", rule.Frequency)
		}
		batch = append(batch, txs...)
	}

	next := slices.Concat(s.state.Transactions, batch)
	if err := s.saveLocked(ctx, new(storage.Batch).Transactions(next).Fence(today)); err != nil {
		s.mu.Unlock()
		slog.ErrorContext(ctx, "Recurring processing rolled back",
			"discarded", len(batch),
			"error", err)
		return 0, err
	}
	s.state.Transactions = next
	s.state.LastRecurringCheck = today
	if len(batch) > 0 {
		s.revision++
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "Recurring processing complete",
		"created", len(batch),
		"last_recurring_check", today.String())

	if len(batch) > 0 {
		s.publish(ctx, core.NewLedgerEvent(core.EventRecurringMaterialized, transactionIDs(batch)...))
	}
	return len(batch), nil
}
