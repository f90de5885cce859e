package services

import (
	"context"
	"fmt"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/store"
)

// SettlementService answers balance and settlement questions by loading the
// relevant slice of the ledger and handing it to the engine, and records the
// settlements users actually carry out.
type SettlementService struct {
	store store.Store
}

func NewSettlementService(st store.Store) *SettlementService {
	return &SettlementService{store: st}
}

// Balance returns the aggregate position of one user across every expense
// that involves them.
func (s *SettlementService) Balance(ctx context.Context, userID string) (core.ExpenseSummary, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.ExpenseSummary{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, store.ListOptions{UserID: userID})
	if err != nil {
		return core.ExpenseSummary{}, fmt.Errorf("list expenses: %w", err)
	}
	return ledger.ComputeBalance(expenses, userID), nil
}

// ProposeSettlements runs the debt simplifier over a group's expenses, or
// over the whole ledger when groupID is empty.
func (s *SettlementService) ProposeSettlements(ctx context.Context, groupID string) ([]core.Settlement, error) {
	users, err := s.participants(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, store.ListOptions{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return ledger.SimplifyDebts(expenses, users), nil
}

// participants resolves the user set the simplifier may settle between:
// group members in member order, or every known user.
func (s *SettlementService) participants(ctx context.Context, groupID string) ([]core.User, error) {
	if groupID == "" {
		users, err := s.store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		return users, nil
	}
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(g.Members))
	for _, id := range g.Members {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// RecordSettlement persists a settlement a user has chosen to carry out.
// Status defaults to pending, date to today.
func (s *SettlementService) RecordSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	if rec.Status == "" {
		rec.Status = core.SettlementPending
	}
	if rec.Date.IsZero() {
		rec.Date = core.Date{Time: time.Now().UTC()}
	}
	if err := rec.Validate(); err != nil {
		return core.SettlementRecord{}, err
	}
	if _, err := s.store.GetUser(ctx, rec.FromUserID); err != nil {
		return core.SettlementRecord{}, err
	}
	if _, err := s.store.GetUser(ctx, rec.ToUserID); err != nil {
		return core.SettlementRecord{}, err
	}
	created, err := s.store.CreateSettlement(ctx, rec)
	if err != nil {
		return core.SettlementRecord{}, fmt.Errorf("save settlement: %w", err)
	}
	return created, nil
}

// CompleteSettlement marks a recorded settlement as paid out.
func (s *SettlementService) CompleteSettlement(ctx context.Context, id string) error {
	return s.store.UpdateSettlementStatus(ctx, id, core.SettlementCompleted)
}

// ListRecorded returns persisted settlement records, optionally group-scoped.
func (s *SettlementService) ListRecorded(ctx context.Context, groupID string) ([]core.SettlementRecord, error) {
	return s.store.ListSettlements(ctx, groupID)
}

// MonthlyReport builds the current-month spending report for one user.
func (s *SettlementService) MonthlyReport(ctx context.Context, userID string, now time.Time) (core.MonthlyReport, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.MonthlyReport{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, store.ListOptions{UserID: userID})
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list expenses: %w", err)
	}
	return ledger.MonthlyReportAt(expenses, userID, now), nil
}
