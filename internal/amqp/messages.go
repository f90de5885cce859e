package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried by ledger event messages.
const (
	EventExpenseCreated = "expense_created"
	EventExpenseUpdated = "expense_updated"
	EventExpenseDeleted = "expense_deleted"
)

// LedgerEventMessage announces an expense mutation. It carries only
// identifiers; the worker reloads the data it needs from the store.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	ExpenseID string    `json:"expenseId"`
	GroupID   string    `json:"groupId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message stamped with the current time
func NewLedgerEventMessage(kind, expenseID, groupID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		ExpenseID: expenseID,
		GroupID:   groupID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
