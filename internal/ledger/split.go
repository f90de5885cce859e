package ledger

import (
	"math"

	"splitledger/internal/core"
)

// PercentShare assigns a participant a percentage of an expense.
type PercentShare struct {
	UserID  string
	Percent float64
}

// SplitEqually divides amount evenly across the participants, one share per
// ID in input order. Each share is rounded to whole cents independently, so
// the sum of shares may drift from amount by up to one cent per participant;
// the drift is deliberate and callers tolerate it.
func SplitEqually(amount core.Money, participantIDs []string) ([]core.Share, error) {
	if len(participantIDs) == 0 {
		return nil, core.ErrNoParticipants
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	per := int64(math.Round(float64(amount.Cents) / float64(len(participantIDs))))
	shares := make([]core.Share, len(participantIDs))
	for i, id := range participantIDs {
		shares[i] = core.Share{UserID: id, Amount: core.Cents(per)}
	}
	return shares, nil
}

// SplitByPercentage divides amount according to each participant's
// percentage. When the percentages do not sum to 100 (beyond a 0.01
// tolerance) they are scaled proportionally, so 50/25/25 and 2/1/1 produce
// the same result. Percentages summing to zero or less cannot be scaled and
// return ErrZeroPercentage.
func SplitByPercentage(amount core.Money, participants []PercentShare) ([]core.Share, error) {
	if len(participants) == 0 {
		return nil, core.ErrNoParticipants
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	var total float64
	for _, p := range participants {
		if math.IsNaN(p.Percent) || math.IsInf(p.Percent, 0) {
			return nil, core.ErrInvalidAmount
		}
		total += p.Percent
	}
	if total <= 0 {
		return nil, core.ErrZeroPercentage
	}
	scale := 1.0
	if math.Abs(total-100) > 0.01 {
		scale = 100 / total
	}
	shares := make([]core.Share, len(participants))
	for i, p := range participants {
		pct := p.Percent * scale
		cents := int64(math.Round(pct / 100 * float64(amount.Cents)))
		shares[i] = core.Share{UserID: p.UserID, Amount: core.Cents(cents)}
	}
	return shares, nil
}
