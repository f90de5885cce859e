package ledger

import (
	"math"
	"sort"
	"time"

	"splitledger/internal/core"
)

// MonthlyReport summarizes the current calendar month's spending for the
// expenses paid by userID. See MonthlyReportAt.
func MonthlyReport(expenses []core.Expense, userID string) core.MonthlyReport {
	return MonthlyReportAt(expenses, userID, time.Now())
}

// MonthlyReportAt builds the report as of now: only expenses paid by userID
// with a date inside [first of now's month, now] contribute. AveragePerDay
// divides the total by the day of month of now, counting days with no
// spending. Expenses without a category land in the "Uncategorized" bucket;
// daily totals are keyed by calendar date and sorted ascending.
func MonthlyReportAt(expenses []core.Expense, userID string, now time.Time) core.MonthlyReport {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var total int64
	categories := make(map[string]core.Money)
	daily := make(map[string]int64)
	for _, e := range expenses {
		if e.PaidBy != userID {
			continue
		}
		if e.Date.Before(firstOfMonth) || e.Date.After(now) {
			continue
		}
		total += e.Amount.Cents
		category := e.Category
		if category == "" {
			category = core.UncategorizedBucket
		}
		categories[category] = categories[category].Add(e.Amount)
		daily[e.Date.Key()] += e.Amount.Cents
	}

	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	dailyExpenses := make([]core.DailyAmount, 0, len(days))
	for _, day := range days {
		dailyExpenses = append(dailyExpenses, core.DailyAmount{Date: day, Amount: core.Cents(daily[day])})
	}

	daysPassed := now.Day()
	average := int64(math.Round(float64(total) / float64(daysPassed)))

	return core.MonthlyReport{
		TotalAmount:     core.Cents(total),
		AveragePerDay:   core.Cents(average),
		CategorySummary: categories,
		DailyExpenses:   dailyExpenses,
	}
}
