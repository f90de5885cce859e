package ledger

import (
	"sort"

	"splitledger/internal/core"
)

// SimplifyDebts reduces the pairwise debts implied by the expenses to a short
// list of settlement transactions using greedy largest-creditor against
// largest-debtor matching.
//
// Each net balance credits the full amount of every expense a user paid and
// debits their share of every expense they participate in. Balances are kept
// for every ID appearing in the expenses, known or not: IDs with a positive
// balance are creditors, negative are debtors, and both sides are sorted by
// descending magnitude with bookkeeping order breaking ties. An ID that is
// missing from users still takes part in the matching and absorbs whatever
// amount it is paired with, but the transaction itself is dropped because
// there is no User to report on either side.
//
// The result is not guaranteed to be the mathematical minimum number of
// transactions, only a correct and usually small one.
func SimplifyDebts(expenses []core.Expense, users []core.User) []core.Settlement {
	known := make(map[string]core.User, len(users))
	balances := make(map[string]int64, len(users))
	order := make([]string, 0, len(users))
	touch := func(id string) {
		if _, ok := balances[id]; !ok {
			balances[id] = 0
			order = append(order, id)
		}
	}
	for _, u := range users {
		known[u.ID] = u
		touch(u.ID)
	}

	for _, e := range expenses {
		touch(e.PaidBy)
		balances[e.PaidBy] += e.Amount.Cents
		for _, p := range e.Participants {
			touch(p.UserID)
			balances[p.UserID] -= p.Amount.Cents
		}
	}

	type party struct {
		id    string
		cents int64
	}
	var creditors, debtors []party
	for _, id := range order {
		switch {
		case balances[id] > 0:
			creditors = append(creditors, party{id: id, cents: balances[id]})
		case balances[id] < 0:
			debtors = append(debtors, party{id: id, cents: -balances[id]})
		}
	}
	sort.SliceStable(creditors, func(a, b int) bool { return creditors[a].cents > creditors[b].cents })
	sort.SliceStable(debtors, func(a, b int) bool { return debtors[a].cents > debtors[b].cents })

	var out []core.Settlement
	ci, di := 0, 0
	for ci < len(creditors) && di < len(debtors) {
		amount := creditors[ci].cents
		if debtors[di].cents < amount {
			amount = debtors[di].cents
		}
		from, fromKnown := known[debtors[di].id]
		to, toKnown := known[creditors[ci].id]
		if amount > 0 && fromKnown && toKnown {
			out = append(out, core.Settlement{
				FromUser: from,
				ToUser:   to,
				Amount:   core.Cents(amount),
			})
		}
		creditors[ci].cents -= amount
		debtors[di].cents -= amount
		if creditors[ci].cents == 0 {
			ci++
		}
		if debtors[di].cents == 0 {
			di++
		}
	}
	return out
}
