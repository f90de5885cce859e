package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// UncategorizedBucket is the report bucket used for expenses without a category.
	UncategorizedBucket = "Uncategorized"

	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

type (
	SettlementStatus string

	Date struct {
		time.Time
	}

	// User is a member of the ledger. The engine treats users as immutable;
	// the store layer owns their lifecycle.
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}

	// Share is one participant's portion of an expense.
	Share struct {
		UserID string `json:"userId"`
		Amount Money  `json:"amount"`
	}

	// Expense is a single shared expense with exactly one payer. The sum of
	// participant shares is expected to equal Amount; Validate enforces this
	// at the boundary, the ledger functions never do.
	Expense struct {
		ID           string  `json:"id"`
		Title        string  `json:"title"`
		Amount       Money   `json:"amount"`
		PaidBy       string  `json:"paidBy"`
		Date         Date    `json:"date"`
		GroupID      string  `json:"groupId,omitempty"`
		Participants []Share `json:"participants"`
		Notes        string  `json:"notes,omitempty"`
		Category     string  `json:"category,omitempty"`
	}

	// Group is a named set of users sharing expenses.
	Group struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		Members   []string `json:"members"`
		CreatedBy string   `json:"createdBy"`
	}

	// ExpenseSummary is one user's aggregate position across a set of expenses.
	ExpenseSummary struct {
		TotalSpent     Money `json:"totalSpent"`
		TotalOwed      Money `json:"totalOwed"`
		TotalOwedToYou Money `json:"totalOwedToYou"`
		NetBalance     Money `json:"netBalance"`
	}

	// Settlement is a proposed payment from one user to another that reduces
	// outstanding imbalance. Amount is always positive.
	Settlement struct {
		FromUser User  `json:"fromUser"`
		ToUser   User  `json:"toUser"`
		Amount   Money `json:"amount"`
	}

	// SettlementRecord is a settlement the caller chose to persist.
	SettlementRecord struct {
		ID         string           `json:"id"`
		FromUserID string           `json:"fromUserId"`
		ToUserID   string           `json:"toUserId"`
		Amount     Money            `json:"amount"`
		Date       Date             `json:"date"`
		GroupID    string           `json:"groupId,omitempty"`
		Status     SettlementStatus `json:"status"`
	}

	// DailyAmount is one day's spending total, keyed by calendar date.
	DailyAmount struct {
		Date   string `json:"date"`
		Amount Money  `json:"amount"`
	}

	// MonthlyReport is a time-bounded spending report for a single payer.
	MonthlyReport struct {
		TotalAmount     Money            `json:"totalAmount"`
		AveragePerDay   Money            `json:"averagePerDay"`
		CategorySummary map[string]Money `json:"categorySummary"`
		DailyExpenses   []DailyAmount    `json:"dailyExpenses"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyTitle       = errors.New("empty title")
	ErrNoPayer          = errors.New("missing payer")
	ErrNoParticipants   = errors.New("no participants")
	ErrZeroPercentage   = errors.New("percentages sum to zero")
	ErrUnbalancedShares = errors.New("participant shares do not sum to amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrEmptyName        = errors.New("empty name")
)

// NewDate creates a Date at midnight UTC for the given year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Key returns the calendar-date bucket key, ignoring time of day.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Key())
}

// UnmarshalJSON accepts a calendar date or a full RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = Date{Time: t}
			return nil
		}
	}
	return ErrInvalidDate
}

func (s SettlementStatus) Valid() bool {
	return s == SettlementPending || s == SettlementCompleted
}

func (u User) Validate() error {
	if strings.TrimSpace(u.DisplayName) == "" {
		return ErrEmptyName
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidInput)
	}
	return nil
}

// Validate checks an expense at the boundary before it is persisted. Shares
// must sum to the expense amount within one cent per participant, which is the
// drift an equal split can legitimately accumulate from per-share rounding.
// The ledger functions assume this invariant and never re-check it.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return fmt.Errorf("%w: title too long (max 200 characters)", ErrInvalidInput)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return ErrNoPayer
	}
	if len(e.Participants) == 0 {
		return ErrNoParticipants
	}
	var sum int64
	for _, p := range e.Participants {
		if p.UserID == "" {
			return fmt.Errorf("%w: participant without user id", ErrInvalidInput)
		}
		if p.Amount.Cents < 0 {
			return ErrInvalidAmount
		}
		sum += p.Amount.Cents
	}
	tolerance := int64(len(e.Participants))
	if diff := sum - e.Amount.Cents; diff > tolerance || diff < -tolerance {
		return ErrUnbalancedShares
	}
	return nil
}

func (r SettlementRecord) Validate() error {
	if r.FromUserID == "" || r.ToUserID == "" {
		return fmt.Errorf("%w: missing settlement party", ErrInvalidInput)
	}
	if r.FromUserID == r.ToUserID {
		return fmt.Errorf("%w: settlement from and to are the same user", ErrInvalidInput)
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: invalid settlement status %q", ErrInvalidInput, r.Status)
	}
	return nil
}
