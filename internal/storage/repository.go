// Package storage is the SQLite persistence backend. It implements every
// store port over database/sql with the modernc sqlite driver and keeps the
// schema current through embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"splitledger/internal/core"
	"splitledger/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, email) VALUES (?, ?, ?)`,
		u.ID, u.DisplayName, u.Email)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, email FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.DisplayName, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, email FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.Group) (core.Group, error) {
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Group{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_groups (id, name, created_by) VALUES (?, ?, ?)`,
		g.ID, g.Name, g.CreatedBy); err != nil {
		return core.Group{}, fmt.Errorf("insert group: %w", err)
	}
	for i, userID := range g.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)`,
			g.ID, userID, i); err != nil {
			return core.Group{}, fmt.Errorf("insert group member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.Group{}, fmt.Errorf("commit: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	var g core.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by FROM ledger_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("select group: %w", err)
	}
	members, err := r.groupMembers(ctx, id)
	if err != nil {
		return core.Group{}, err
	}
	g.Members = members
	return g, nil
}

func (r *SQLiteRepository) groupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("select group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_by FROM ledger_groups ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		members, err := r.groupMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, groupID, userID string) error {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := r.GetUser(ctx, userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM group_members WHERE group_id = ?))`,
		groupID, userID, groupID)
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s in group %s: %w", userID, groupID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (id, title, amount_cents, paid_by, date, group_id, notes, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Amount.Cents, e.PaidBy, e.Date.Format(time.RFC3339),
		e.GroupID, e.Notes, e.Category); err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	if err := insertParticipants(ctx, tx, e.ID, e.Participants); err != nil {
		return core.Expense{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, expenseID string, shares []core.Share) error {
	for i, p := range shares {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_participants (expense_id, user_id, amount_cents, position)
			 VALUES (?, ?, ?, ?)`,
			expenseID, p.UserID, p.Amount.Cents, i); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := r.scanExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	shares, err := r.expenseParticipants(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.Participants = shares
	return e, nil
}

func (r *SQLiteRepository) scanExpense(ctx context.Context, id string) (core.Expense, error) {
	var (
		e       core.Expense
		rawDate string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount_cents, paid_by, date, group_id, notes, category
		 FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.PaidBy, &rawDate, &e.GroupID, &e.Notes, &e.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.Date, err = parseDate(rawDate)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func parseDate(raw string) (core.Date, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", raw, err)
	}
	return core.Date{Time: t}, nil
}

func (r *SQLiteRepository) expenseParticipants(ctx context.Context, expenseID string) ([]core.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, amount_cents FROM expense_participants
		 WHERE expense_id = ? ORDER BY position`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var shares []core.Share
	for rows.Next() {
		var s core.Share
		if err := rows.Scan(&s.UserID, &s.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount_cents = ?, paid_by = ?, date = ?,
		 group_id = ?, notes = ?, category = ? WHERE id = ?`,
		e.Title, e.Amount.Cents, e.PaidBy, e.Date.Format(time.RFC3339),
		e.GroupID, e.Notes, e.Category, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expense_participants WHERE expense_id = ?`, e.ID); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	if err := insertParticipants(ctx, tx, e.ID, e.Participants); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, opts store.ListOptions) ([]core.Expense, error) {
	opts = opts.Normalized()

	query := `SELECT DISTINCT e.id, e.title, e.amount_cents, e.paid_by, e.date,
		e.group_id, e.notes, e.category FROM expenses e`
	var (
		args  []any
		where string
	)
	if opts.UserID != "" {
		query += ` LEFT JOIN expense_participants p ON p.expense_id = e.id`
		where = ` WHERE (e.paid_by = ? OR p.user_id = ?)`
		args = append(args, opts.UserID, opts.UserID)
	}
	if opts.GroupID != "" {
		if where == "" {
			where = ` WHERE e.group_id = ?`
		} else {
			where += ` AND e.group_id = ?`
		}
		args = append(args, opts.GroupID)
	}
	query += where + orderClause(opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			rawDate string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount.Cents, &e.PaidBy, &rawDate,
			&e.GroupID, &e.Notes, &e.Category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = parseDate(rawDate)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		shares, err := r.expenseParticipants(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Participants = shares
	}
	return out, nil
}

// orderClause maps sort options onto a fixed set of ORDER BY clauses; user
// input never reaches the SQL text.
func orderClause(opts store.ListOptions) string {
	column := "e.date"
	switch opts.SortBy {
	case store.SortByAmount:
		column = "e.amount_cents"
	case store.SortByTitle:
		column = "e.title"
	}
	dir := "DESC"
	if opts.Dir == store.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, e.id %s", column, dir, dir)
}

func (r *SQLiteRepository) CreateSettlement(ctx context.Context, rec core.SettlementRecord) (core.SettlementRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.SettlementRecord{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settlements (id, from_user, to_user, amount_cents, date, group_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FromUserID, rec.ToUserID, rec.Amount.Cents,
		rec.Date.Format(time.RFC3339), rec.GroupID, string(rec.Status))
	if err != nil {
		return core.SettlementRecord{}, fmt.Errorf("insert settlement: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) UpdateSettlementStatus(ctx context.Context, id string, status core.SettlementStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid settlement status %q", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE settlements SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("settlement %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListSettlements(ctx context.Context, groupID string) ([]core.SettlementRecord, error) {
	query := `SELECT id, from_user, to_user, amount_cents, date, group_id, status
		FROM settlements`
	var args []any
	if groupID != "" {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select settlements: %w", err)
	}
	defer rows.Close()

	var out []core.SettlementRecord
	for rows.Next() {
		var (
			rec     core.SettlementRecord
			rawDate string
			status  string
		)
		if err := rows.Scan(&rec.ID, &rec.FromUserID, &rec.ToUserID, &rec.Amount.Cents,
			&rawDate, &rec.GroupID, &status); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		rec.Date, err = parseDate(rawDate)
		if err != nil {
			return nil, err
		}
		rec.Status = core.SettlementStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReplacePendingSettlements(ctx context.Context, groupID string, records []core.SettlementRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM settlements WHERE group_id = ? AND status = 'pending'`, groupID); err != nil {
		return fmt.Errorf("delete pending settlements: %w", err)
	}
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.GroupID = groupID
		if rec.Status == "" {
			rec.Status = core.SettlementPending
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settlements (id, from_user, to_user, amount_cents, date, group_id, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.FromUserID, rec.ToUserID, rec.Amount.Cents,
			rec.Date.Format(time.RFC3339), rec.GroupID, string(rec.Status)); err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
	}
	return tx.Commit()
}
