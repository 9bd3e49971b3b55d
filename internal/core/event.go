package core

import "time"

const (
	EventTransactionCreated    EventKind = "transaction.created"
	EventTransactionDeleted    EventKind = "transaction.deleted"
	EventRecurringMaterialized EventKind = "recurring.materialized"
	EventLedgerImported        EventKind = "ledger.imported"
	EventRuleCreated           EventKind = "rule.created"
	EventRuleDeleted           EventKind = "rule.deleted"
)

type EventKind string

// LedgerEvent describes a committed ledger mutation.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	IDs       []ID      `json:"ids,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, ids ...ID) LedgerEvent {
	return LedgerEvent{
		Kind:      kind,
		IDs:       ids,
		Count:     len(ids),
		Timestamp: time.Now().UTC(),
	}
}
