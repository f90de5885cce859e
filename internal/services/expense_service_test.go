package services

import (
	"context"
	"errors"
	"testing"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/store/memory"
)

type fakePublisher struct {
	events []string
	fail   bool
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, kind, expenseID, _ string) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, kind+":"+expenseID)
	return nil
}

func newTestService(t *testing.T, pub EventPublisher) *ExpenseService {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	for _, u := range []core.User{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
	} {
		if _, err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return NewExpenseService(st, pub)
}

func testExpense() core.Expense {
	return core.Expense{
		Title:  "Dinner",
		Amount: core.Cents(6000),
		PaidBy: "alice",
		Date:   core.NewDate(2026, 8, 10),
		Participants: []core.Share{
			{UserID: "alice", Amount: core.Cents(3000)},
			{UserID: "bob", Amount: core.Cents(3000)},
		},
	}
}

func TestCreateExpensePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)

	created, err := svc.CreateExpense(context.Background(), testExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if len(pub.events) != 1 || pub.events[0] != amqp.EventExpenseCreated+":"+created.ID {
		t.Fatalf("events = %v", pub.events)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	svc := newTestService(t, &fakePublisher{})

	e := testExpense()
	e.Participants = nil
	if _, err := svc.CreateExpense(context.Background(), e); !errors.Is(err, core.ErrNoParticipants) {
		t.Fatalf("got %v, want ErrNoParticipants", err)
	}

	e = testExpense()
	e.Participants[0].Amount = core.Cents(100)
	if _, err := svc.CreateExpense(context.Background(), e); !errors.Is(err, core.ErrUnbalancedShares) {
		t.Fatalf("got %v, want ErrUnbalancedShares", err)
	}
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	svc := newTestService(t, pub)

	created, err := svc.CreateExpense(context.Background(), testExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if _, err := svc.GetExpense(context.Background(), created.ID); err != nil {
		t.Fatalf("expense not persisted: %v", err)
	}
}

func TestUpdateAndDeletePublishEvents(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, testExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	created.Title = "Late dinner"
	if err := svc.UpdateExpense(ctx, created); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if err := svc.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	want := []string{
		amqp.EventExpenseCreated + ":" + created.ID,
		amqp.EventExpenseUpdated + ":" + created.ID,
		amqp.EventExpenseDeleted + ":" + created.ID,
	}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %v", pub.events)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Fatalf("events[%d] = %s, want %s", i, pub.events[i], want[i])
		}
	}
}

func TestDeleteMissingExpense(t *testing.T) {
	svc := newTestService(t, &fakePublisher{})
	if err := svc.DeleteExpense(context.Background(), "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPreviewSplitsDelegate(t *testing.T) {
	svc := newTestService(t, nil)

	shares, err := svc.PreviewEqualSplit(core.Cents(9000), []string{"alice", "bob", "carol"})
	if err != nil || len(shares) != 3 || shares[0].Amount.Cents != 3000 {
		t.Fatalf("PreviewEqualSplit: %+v, %v", shares, err)
	}
}
