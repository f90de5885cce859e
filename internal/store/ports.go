// Package store declares the persistence ports the services depend on.
// Implementations live in store/memory (dev and tests) and storage (SQLite).
package store

import (
	"context"

	"splitledger/internal/core"
)

type SortField string

type SortDir string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"
	SortByTitle  SortField = "title"

	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ListOptions narrows and orders an expense listing. UserID matches expenses
// the user paid or participates in; GroupID matches the expense's group. The
// zero value lists everything in descending date order.
type ListOptions struct {
	UserID  string
	GroupID string
	SortBy  SortField
	Dir     SortDir
}

func (o ListOptions) Normalized() ListOptions {
	if o.SortBy == "" {
		o.SortBy = SortByDate
	}
	if o.Dir == "" {
		o.Dir = SortDesc
	}
	return o
}

// Ports for persistence adapters.
type (
	UserStore interface {
		// CreateUser stores u, assigning an ID when empty, and returns the
		// stored record.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	GroupStore interface {
		CreateGroup(ctx context.Context, g core.Group) (core.Group, error)
		GetGroup(ctx context.Context, id string) (core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		AddMember(ctx context.Context, groupID, userID string) error
		RemoveMember(ctx context.Context, groupID, userID string) error
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
		ListExpenses(ctx context.Context, opts ListOptions) ([]core.Expense, error)
	}

	SettlementStore interface {
		CreateSettlement(ctx context.Context, s core.SettlementRecord) (core.SettlementRecord, error)
		UpdateSettlementStatus(ctx context.Context, id string, status core.SettlementStatus) error
		ListSettlements(ctx context.Context, groupID string) ([]core.SettlementRecord, error)
		// ReplacePendingSettlements swaps the pending settlements of a group
		// for a freshly computed proposal set. Completed records are kept.
		ReplacePendingSettlements(ctx context.Context, groupID string, records []core.SettlementRecord) error
	}
)

// Store bundles every port plus lifecycle, implemented by each backend.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	SettlementStore
	Close() error
}
