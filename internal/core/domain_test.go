package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func validExpense() Expense {
	return Expense{
		ID:     "e1",
		Title:  "Dinner",
		Amount: Cents(9000),
		PaidBy: "u1",
		Date:   NewDate(2026, 8, 15),
		Participants: []Share{
			{UserID: "u1", Amount: Cents(3000)},
			{UserID: "u2", Amount: Cents(3000)},
			{UserID: "u3", Amount: Cents(3000)},
		},
	}
}

func TestExpenseValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"valid", func(e *Expense) {}, nil},
		{"empty title", func(e *Expense) { e.Title = "  " }, ErrEmptyTitle},
		{"zero amount", func(e *Expense) { e.Amount = Cents(0) }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Cents(-100) }, ErrInvalidAmount},
		{"no payer", func(e *Expense) { e.PaidBy = "" }, ErrNoPayer},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"no participants", func(e *Expense) { e.Participants = nil }, ErrNoParticipants},
		{"negative share", func(e *Expense) { e.Participants[0].Amount = Cents(-1) }, ErrInvalidAmount},
		{"unbalanced shares", func(e *Expense) { e.Participants[0].Amount = Cents(100) }, ErrUnbalancedShares},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			err := e.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestExpenseValidateToleratesRoundingDrift(t *testing.T) {
	// 100.00 split three ways rounds each share to 33.33, leaving the sum one
	// cent short. That drift is within tolerance.
	e := validExpense()
	e.Amount = Cents(10000)
	e.Participants = []Share{
		{UserID: "u1", Amount: Cents(3333)},
		{UserID: "u2", Amount: Cents(3333)},
		{UserID: "u3", Amount: Cents(3333)},
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Four cents off with three participants is out of tolerance.
	e.Participants[0].Amount = Cents(3330)
	if err := e.Validate(); !errors.Is(err, ErrUnbalancedShares) {
		t.Fatalf("got %v, want ErrUnbalancedShares", err)
	}
}

func TestGroupValidate(t *testing.T) {
	g := Group{ID: "g1", Name: "Trip", Members: []string{"u1"}, CreatedBy: "u1"}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Name = ""
	if err := g.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("got %v, want ErrEmptyName", err)
	}
}

func TestSettlementRecordValidate(t *testing.T) {
	r := SettlementRecord{
		ID:         "s1",
		FromUserID: "u2",
		ToUserID:   "u1",
		Amount:     Cents(500),
		Date:       NewDate(2026, 8, 20),
		Status:     SettlementPending,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ToUserID = "u2"
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for self settlement")
	}
	r.ToUserID = "u1"
	r.Status = "done"
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDateKey(t *testing.T) {
	d := NewDate(2026, 8, 5)
	if got := d.Key(); got != "2026-08-05" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2026-08-05"`), &d); err != nil || d.Key() != "2026-08-05" {
		t.Fatalf("calendar date: %v, %q", err, d.Key())
	}
	if err := json.Unmarshal([]byte(`"2026-08-05T10:30:00Z"`), &d); err != nil || d.Key() != "2026-08-05" {
		t.Fatalf("timestamp: %v, %q", err, d.Key())
	}
	b, err := json.Marshal(NewDate(2026, 8, 5))
	if err != nil || string(b) != `"2026-08-05"` {
		t.Fatalf("marshal: %v, %s", err, b)
	}
	if err := json.Unmarshal([]byte(`"08/05/2026"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
}
