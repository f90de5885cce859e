package amqp

import (
	"testing"
	"time"
)

func TestLedgerEventMessageJSON(t *testing.T) {
	msg := NewLedgerEventMessage(EventExpenseCreated, "exp-1", "grp-1")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back.Kind != EventExpenseCreated || back.ExpenseID != "exp-1" || back.GroupID != "grp-1" {
		t.Fatalf("round trip lost fields: %+v", back)
	}
	if !back.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Fatalf("timestamp changed: %v vs %v", back.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEventMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}
