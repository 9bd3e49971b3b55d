package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// MessageVersion is bumped on incompatible payload changes.
const MessageVersion = 1

// LedgerEventMessage is the wire form of core.LedgerEvent.
type LedgerEventMessage struct {
	Version   int       `json:"version"`
	Kind      string    `json:"kind"`
	IDs       []string  `json:"ids,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(event core.LedgerEvent) *LedgerEventMessage {
	ids := make([]string, len(event.IDs))
	for i, id := range event.IDs {
		ids[i] = string(id)
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &LedgerEventMessage{
		Version:   MessageVersion,
		Kind:      string(event.Kind),
		IDs:       ids,
		Count:     event.Count,
		Timestamp: ts,
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
