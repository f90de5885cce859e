package worker

import (
	"context"
	"testing"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/store/memory"
)

type fakeExporter struct {
	appended []string
}

func (f *fakeExporter) AppendMonthlyReport(_ context.Context, u core.User, _ core.MonthlyReport) error {
	f.appended = append(f.appended, u.ID)
	return nil
}

func newWorkerFixture(t *testing.T) (*SnapshotWorker, *memory.Store, *fakeExporter) {
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
	if _, err := st.CreateGroup(ctx, core.Group{
		ID: "trip", Name: "Trip", Members: []string{"alice", "bob"}, CreatedBy: "alice",
	}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := st.CreateExpense(ctx, core.Expense{
		ID: "e1", Title: "Hotel", Amount: core.Cents(8000),
		PaidBy: "alice", Date: core.NewDate(2026, 8, 10), GroupID: "trip",
		Participants: []core.Share{
			{UserID: "alice", Amount: core.Cents(4000)},
			{UserID: "bob", Amount: core.Cents(4000)},
		},
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	exp := &fakeExporter{}
	return NewSnapshotWorker(st, exp), st, exp
}

func TestHandleLedgerEventSnapshotsGroup(t *testing.T) {
	w, st, _ := newWorkerFixture(t)
	ctx := context.Background()

	msg := amqp.NewLedgerEventMessage(amqp.EventExpenseCreated, "e1", "trip")
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	recs, err := st.ListSettlements(ctx, "trip")
	if err != nil || len(recs) != 1 {
		t.Fatalf("settlements: %+v, %v", recs, err)
	}
	got := recs[0]
	if got.FromUserID != "bob" || got.ToUserID != "alice" || got.Amount.Cents != 4000 {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.Status != core.SettlementPending {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestHandleLedgerEventUngroupedIsNoop(t *testing.T) {
	w, st, _ := newWorkerFixture(t)
	ctx := context.Background()

	msg := amqp.NewLedgerEventMessage(amqp.EventExpenseCreated, "e1", "")
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	recs, err := st.ListSettlements(ctx, "")
	if err != nil || len(recs) != 0 {
		t.Fatalf("settlements: %+v, %v", recs, err)
	}
}

func TestSnapshotIsIdempotent(t *testing.T) {
	w, st, _ := newWorkerFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.SnapshotGroup(ctx, "trip"); err != nil {
			t.Fatalf("SnapshotGroup: %v", err)
		}
	}
	recs, err := st.ListSettlements(ctx, "trip")
	if err != nil || len(recs) != 1 {
		t.Fatalf("settlements after reruns: %+v, %v", recs, err)
	}
}

func TestSnapshotAll(t *testing.T) {
	w, st, _ := newWorkerFixture(t)
	ctx := context.Background()

	if err := w.SnapshotAll(ctx); err != nil {
		t.Fatalf("SnapshotAll: %v", err)
	}
	recs, err := st.ListSettlements(ctx, "trip")
	if err != nil || len(recs) != 1 {
		t.Fatalf("settlements: %+v, %v", recs, err)
	}
}

func TestExportMonthlyReports(t *testing.T) {
	w, _, exp := newWorkerFixture(t)

	now := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	if err := w.ExportMonthlyReports(context.Background(), now); err != nil {
		t.Fatalf("ExportMonthlyReports: %v", err)
	}
	// Only alice paid anything this month.
	if len(exp.appended) != 1 || exp.appended[0] != "alice" {
		t.Fatalf("appended = %v", exp.appended)
	}
}
