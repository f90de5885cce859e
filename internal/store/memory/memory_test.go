package memory

import (
	"context"
	"errors"
	"testing"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	for _, u := range []core.User{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
	} {
		if _, err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return s
}

func expense(id string, cents int64, day int, title string) core.Expense {
	return core.Expense{
		ID:     id,
		Title:  title,
		Amount: core.Cents(cents),
		PaidBy: "alice",
		Date:   core.NewDate(2026, 8, day),
		Participants: []core.Share{
			{UserID: "alice", Amount: core.Cents(cents / 2)},
			{UserID: "bob", Amount: core.Cents(cents / 2)},
		},
	}
}

func TestUserCRUD(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "alice")
	if err != nil || u.DisplayName != "Alice" {
		t.Fatalf("GetUser: %+v, %v", u, err)
	}
	if _, err := s.GetUser(ctx, "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := s.CreateUser(ctx, core.User{ID: "alice", DisplayName: "Dup"}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers: %v, %v", users, err)
	}
	if users[0].ID != "alice" || users[1].ID != "bob" {
		t.Fatalf("insertion order lost: %+v", users)
	}
}

func TestGroupMembership(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	g := core.Group{ID: "trip", Name: "Trip", Members: []string{"alice"}, CreatedBy: "alice"}
	if _, err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := s.AddMember(ctx, "trip", "bob"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	// Adding twice is a no-op.
	if err := s.AddMember(ctx, "trip", "bob"); err != nil {
		t.Fatalf("AddMember twice: %v", err)
	}
	if err := s.AddMember(ctx, "trip", "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	got, err := s.GetGroup(ctx, "trip")
	if err != nil || len(got.Members) != 2 {
		t.Fatalf("GetGroup: %+v, %v", got, err)
	}
	if err := s.RemoveMember(ctx, "trip", "bob"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := s.RemoveMember(ctx, "trip", "bob"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestExpenseCRUD(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	e := expense("e1", 3000, 10, "Dinner")
	if _, err := s.CreateExpense(ctx, e); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	e.Title = "Late dinner"
	if err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	got, err := s.GetExpense(ctx, "e1")
	if err != nil || got.Title != "Late dinner" {
		t.Fatalf("GetExpense: %+v, %v", got, err)
	}
	if err := s.DeleteExpense(ctx, "e1"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if _, err := s.GetExpense(ctx, "e1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListExpensesFilterAndSort(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	a := expense("e1", 3000, 12, "Cinema")
	b := expense("e2", 1000, 10, "Apples")
	c := expense("e3", 2000, 11, "Bread")
	c.GroupID = "trip"
	for _, e := range []core.Expense{a, b, c} {
		if _, err := s.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	// Default: date descending.
	got, err := s.ListExpenses(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if got[0].ID != "e1" || got[2].ID != "e2" {
		t.Fatalf("default order: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}

	got, err = s.ListExpenses(ctx, store.ListOptions{SortBy: store.SortByAmount, Dir: store.SortAsc})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if got[0].ID != "e2" || got[2].ID != "e1" {
		t.Fatalf("amount asc: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}

	got, err = s.ListExpenses(ctx, store.ListOptions{SortBy: store.SortByTitle, Dir: store.SortAsc})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if got[0].Title != "Apples" || got[2].Title != "Cinema" {
		t.Fatalf("title asc: %+v", got)
	}

	got, err = s.ListExpenses(ctx, store.ListOptions{GroupID: "trip"})
	if err != nil || len(got) != 1 || got[0].ID != "e3" {
		t.Fatalf("group filter: %+v, %v", got, err)
	}

	got, err = s.ListExpenses(ctx, store.ListOptions{UserID: "bob"})
	if err != nil || len(got) != 3 {
		t.Fatalf("user filter: %+v, %v", got, err)
	}
}

func TestSettlements(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	rec := core.SettlementRecord{
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     core.Cents(1500),
		Date:       core.NewDate(2026, 8, 20),
		GroupID:    "trip",
		Status:     core.SettlementPending,
	}
	if _, err := s.CreateSettlement(ctx, rec); err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}
	list, err := s.ListSettlements(ctx, "trip")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSettlements: %+v, %v", list, err)
	}
	if err := s.UpdateSettlementStatus(ctx, list[0].ID, core.SettlementCompleted); err != nil {
		t.Fatalf("UpdateSettlementStatus: %v", err)
	}

	// A snapshot replaces pending records but keeps completed ones.
	if err := s.ReplacePendingSettlements(ctx, "trip", []core.SettlementRecord{
		{FromUserID: "bob", ToUserID: "alice", Amount: core.Cents(500), Date: core.NewDate(2026, 8, 21)},
	}); err != nil {
		t.Fatalf("ReplacePendingSettlements: %v", err)
	}
	list, err = s.ListSettlements(ctx, "trip")
	if err != nil || len(list) != 2 {
		t.Fatalf("after replace: %+v, %v", list, err)
	}
	var pending, completed int
	for _, rec := range list {
		switch rec.Status {
		case core.SettlementPending:
			pending++
		case core.SettlementCompleted:
			completed++
		}
	}
	if pending != 1 || completed != 1 {
		t.Fatalf("pending=%d completed=%d", pending, completed)
	}
}
