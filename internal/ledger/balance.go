// Package ledger implements the settlement engine: balance summaries, debt
// simplification, expense splitting and monthly reports. Every function is
// pure and synchronous; callers own loading, filtering and validating the
// expense data they pass in.
package ledger

import "splitledger/internal/core"

// ComputeBalance aggregates one user's position across the given expenses.
//
// For expenses the user paid, the full amount counts toward TotalSpent and
// every participant share except the payer's own counts toward TotalOwedToYou.
// For expenses paid by someone else, only the user's own share (if present)
// counts toward TotalOwed. NetBalance is TotalOwedToYou minus TotalOwed.
func ComputeBalance(expenses []core.Expense, userID string) core.ExpenseSummary {
	var s core.ExpenseSummary
	for _, e := range expenses {
		if e.PaidBy == userID {
			s.TotalSpent = s.TotalSpent.Add(e.Amount)
			for _, p := range e.Participants {
				if p.UserID != userID {
					s.TotalOwedToYou = s.TotalOwedToYou.Add(p.Amount)
				}
			}
			continue
		}
		for _, p := range e.Participants {
			if p.UserID == userID {
				s.TotalOwed = s.TotalOwed.Add(p.Amount)
				break
			}
		}
	}
	s.NetBalance = s.TotalOwedToYou.Sub(s.TotalOwed)
	return s
}
