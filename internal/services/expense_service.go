// Package services orchestrates the engine, the stores and the event bus.
// Handlers call services, services call everything else.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/log"
	"splitledger/internal/store"
)

// EventPublisher is the slice of the AMQP client the service needs.
// *amqp.Client satisfies it; tests use fakes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, kind, expenseID, groupID string) error
}

// ExpenseService validates and persists expenses and announces every
// mutation on the event bus. Publish failures are logged, never returned:
// the local write is the source of truth.
type ExpenseService struct {
	store     store.Store
	publisher EventPublisher
}

func NewExpenseService(st store.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     st,
		publisher: publisher,
	}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	fields := log.NewFields().
		WithComponent(log.ComponentExpense).
		WithOperation(log.OpCreate).
		WithExpense(created.ID, created.Title, created.Amount.Cents)
	slog.InfoContext(ctx, "Expense created", fields.ToSlice()...)

	s.publishEvent(ctx, amqp.EventExpenseCreated, created.ID, created.GroupID)
	return created, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EventExpenseUpdated, e.ID, e.GroupID)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EventExpenseDeleted, id, e.GroupID)
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, opts store.ListOptions) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, opts)
}

// PreviewEqualSplit computes equal shares without persisting anything.
func (s *ExpenseService) PreviewEqualSplit(amount core.Money, participantIDs []string) ([]core.Share, error) {
	return ledger.SplitEqually(amount, participantIDs)
}

// PreviewPercentageSplit computes percentage shares without persisting anything.
func (s *ExpenseService) PreviewPercentageSplit(amount core.Money, participants []ledger.PercentShare) ([]core.Share, error) {
	return ledger.SplitByPercentage(amount, participants)
}

func (s *ExpenseService) publishEvent(ctx context.Context, kind, expenseID, groupID string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "kind", kind)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, kind, expenseID, groupID); err != nil {
		fields := log.NewFields().
			WithComponent(log.ComponentExpense).
			WithOperation(log.OpPublish).
			WithError(err)
		fields[log.FieldEventKind] = kind
		fields[log.FieldExpenseID] = expenseID
		slog.ErrorContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}
