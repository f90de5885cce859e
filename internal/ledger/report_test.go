package ledger

import (
	"testing"
	"time"

	"splitledger/internal/core"
)

func reportExpense(id string, cents int64, day int, category string) core.Expense {
	return core.Expense{
		ID:     id,
		Title:  id,
		Amount: core.Cents(cents),
		PaidBy: "alice",
		Date:   core.NewDate(2026, 8, day),
		Participants: []core.Share{
			{UserID: "alice", Amount: core.Cents(cents)},
		},
		Category: category,
	}
}

func TestMonthlyReportAt(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		reportExpense("groceries", 4500, 3, "Food"),
		reportExpense("dinner", 3000, 3, "Food"),
		reportExpense("cinema", 1500, 10, "Fun"),
		reportExpense("misc", 600, 12, ""),
	}
	r := MonthlyReportAt(expenses, "alice", now)

	if r.TotalAmount.Cents != 9600 {
		t.Fatalf("TotalAmount = %d, want 9600", r.TotalAmount.Cents)
	}
	// 96.00 over 15 days is 6.40 per day.
	if r.AveragePerDay.Cents != 640 {
		t.Fatalf("AveragePerDay = %d, want 640", r.AveragePerDay.Cents)
	}
	if got := r.CategorySummary["Food"].Cents; got != 7500 {
		t.Fatalf("Food = %d, want 7500", got)
	}
	if got := r.CategorySummary["Fun"].Cents; got != 1500 {
		t.Fatalf("Fun = %d, want 1500", got)
	}
	if got := r.CategorySummary[core.UncategorizedBucket].Cents; got != 600 {
		t.Fatalf("Uncategorized = %d, want 600", got)
	}
	wantDaily := []core.DailyAmount{
		{Date: "2026-08-03", Amount: core.Cents(7500)},
		{Date: "2026-08-10", Amount: core.Cents(1500)},
		{Date: "2026-08-12", Amount: core.Cents(600)},
	}
	if len(r.DailyExpenses) != len(wantDaily) {
		t.Fatalf("DailyExpenses = %+v", r.DailyExpenses)
	}
	for i, d := range wantDaily {
		if r.DailyExpenses[i] != d {
			t.Fatalf("DailyExpenses[%d] = %+v, want %+v", i, r.DailyExpenses[i], d)
		}
	}
}

func TestMonthlyReportAtScoping(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	lastMonth := reportExpense("july", 5000, 1, "Food")
	lastMonth.Date = core.NewDate(2026, 7, 20)
	future := reportExpense("future", 5000, 25, "Food")
	paidByOther := reportExpense("other", 5000, 5, "Food")
	paidByOther.PaidBy = "bob"
	inScope := reportExpense("now", 1500, 15, "Food")

	r := MonthlyReportAt([]core.Expense{lastMonth, future, paidByOther, inScope}, "alice", now)
	if r.TotalAmount.Cents != 1500 {
		t.Fatalf("TotalAmount = %d, want 1500", r.TotalAmount.Cents)
	}
	if len(r.DailyExpenses) != 1 || r.DailyExpenses[0].Date != "2026-08-15" {
		t.Fatalf("DailyExpenses = %+v", r.DailyExpenses)
	}
}

func TestMonthlyReportAtEmpty(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	r := MonthlyReportAt(nil, "alice", now)
	if r.TotalAmount.Cents != 0 || r.AveragePerDay.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", r)
	}
	if r.CategorySummary == nil || len(r.CategorySummary) != 0 {
		t.Fatalf("CategorySummary = %v", r.CategorySummary)
	}
	if r.DailyExpenses == nil || len(r.DailyExpenses) != 0 {
		t.Fatalf("DailyExpenses = %v", r.DailyExpenses)
	}
}

func TestMonthlyReportAtFirstOfMonth(t *testing.T) {
	// On the 1st the average divides by one day, not zero.
	now := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	r := MonthlyReportAt([]core.Expense{reportExpense("coffee", 350, 1, "")}, "alice", now)
	if r.AveragePerDay.Cents != 350 {
		t.Fatalf("AveragePerDay = %d, want 350", r.AveragePerDay.Cents)
	}
}
