// Package worker keeps derived settlement data fresh in the background. It
// consumes ledger events and periodically recomputes per-group settlement
// snapshots, optionally exporting monthly reports to a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/store"
)

// ReportExporter lands monthly report rows in an external sheet.
type ReportExporter interface {
	AppendMonthlyReport(ctx context.Context, user core.User, report core.MonthlyReport) error
}

// SnapshotWorker recomputes pending settlement records whenever expenses
// change. Snapshots are idempotent: each run replaces the group's pending
// records with the engine's current proposal.
type SnapshotWorker struct {
	store    store.Store
	exporter ReportExporter
}

func NewSnapshotWorker(st store.Store, exporter ReportExporter) *SnapshotWorker {
	return &SnapshotWorker{
		store:    st,
		exporter: exporter,
	}
}

// HandleLedgerEvent refreshes the snapshot of the group the event touched.
// Events for ungrouped expenses trigger no snapshot; those settlements are
// computed on demand.
func (w *SnapshotWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"expense_id", msg.ExpenseID,
		"group_id", msg.GroupID)

	if msg.GroupID == "" {
		return nil
	}
	return w.SnapshotGroup(ctx, msg.GroupID)
}

// SnapshotGroup runs the debt simplifier over one group's expenses and
// replaces its pending settlement records with the result.
func (w *SnapshotWorker) SnapshotGroup(ctx context.Context, groupID string) error {
	g, err := w.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	users := make([]core.User, 0, len(g.Members))
	for _, id := range g.Members {
		u, err := w.store.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("load member: %w", err)
		}
		users = append(users, u)
	}
	expenses, err := w.store.ListExpenses(ctx, store.ListOptions{GroupID: groupID})
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	proposals := ledger.SimplifyDebts(expenses, users)
	records := make([]core.SettlementRecord, 0, len(proposals))
	now := core.Date{Time: time.Now().UTC()}
	for _, p := range proposals {
		records = append(records, core.SettlementRecord{
			FromUserID: p.FromUser.ID,
			ToUserID:   p.ToUser.ID,
			Amount:     p.Amount,
			Date:       now,
			GroupID:    groupID,
			Status:     core.SettlementPending,
		})
	}
	if err := w.store.ReplacePendingSettlements(ctx, groupID, records); err != nil {
		return fmt.Errorf("replace pending settlements: %w", err)
	}

	slog.InfoContext(ctx, "Settlement snapshot updated",
		"group_id", groupID,
		"settlements", len(records))
	return nil
}

// SnapshotAll refreshes every group. Used at startup and on the catch-up
// tick so snapshots converge even when events are lost.
func (w *SnapshotWorker) SnapshotAll(ctx context.Context) error {
	groups, err := w.store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if err := w.SnapshotGroup(ctx, g.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to snapshot group",
				"group_id", g.ID,
				"error", err)
		}
	}
	return nil
}

// ExportMonthlyReports appends each user's current-month report to the
// configured sheet. A nil exporter makes this a no-op.
func (w *SnapshotWorker) ExportMonthlyReports(ctx context.Context, now time.Time) error {
	if w.exporter == nil {
		return nil
	}
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		expenses, err := w.store.ListExpenses(ctx, store.ListOptions{UserID: u.ID})
		if err != nil {
			return fmt.Errorf("list expenses for %s: %w", u.ID, err)
		}
		report := ledger.MonthlyReportAt(expenses, u.ID, now)
		if report.TotalAmount.IsZero() {
			continue
		}
		if err := w.exporter.AppendMonthlyReport(ctx, u, report); err != nil {
			slog.ErrorContext(ctx, "Failed to export monthly report",
				"user_id", u.ID,
				"error", err)
		}
	}
	return nil
}
