package settle

import (
	"context"
	"fmt"
	"math"
)

type Options struct {
	// Precision is the number of decimal places transfers are rounded to.
	Precision int
	// Tolerance is the unsettled remainder accepted after applying the
	// chosen combo. Values below EpsilonFor the group's total debt are
	// raised to it.
	Tolerance float64
}

type Result struct {
	Participants []Participant
	Combo        Combo
	Precision    int
	// Residue is what stays unsettled once every transfer is applied.
	Residue float64
}

// Transfer is a transaction with participant names resolved.
type Transfer struct {
	From    string
	To      string
	Amount  float64
	Rounded float64
}

func (r *Result) Transfers() []Transfer {
	out := make([]Transfer, 0, r.Combo.Len())
	for _, t := range r.Combo.Transactions {
		out = append(out, Transfer{
			From:    r.Participants[t.From].Name,
			To:      r.Participants[t.To].Name,
			Amount:  t.Amount,
			Rounded: t.Rounded,
		})
	}
	return out
}

// Settle searches the transfers settling the participants' balances.
//
// The context is checked between combos, so a deadline bounds the search on
// groups that are too large for exhaustive enumeration.
func Settle(ctx context.Context, participants []Participant, opts Options) (*Result, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if opts.Precision < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrecision, opts.Precision)
	}
	for i, p := range participants {
		if p.Index != i {
			return nil, fmt.Errorf("%w: %q has index %d at position %d", ErrIndexMismatch, p.Name, p.Index, i)
		}
	}

	sel := selector{participants: participants}
	for c := range Combos(participants, opts.Precision) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sel.offer(c)
	}
	combo, err := sel.best()
	if err != nil {
		return nil, err
	}

	residue := Residue(participants, combo)
	if residue > max(opts.Tolerance, epsilonOf(participants)) {
		return nil, fmt.Errorf("%w: %.6f left unsettled", ErrUnreconciled, residue)
	}
	return &Result{
		Participants: participants,
		Combo:        combo,
		Precision:    opts.Precision,
		Residue:      residue,
	}, nil
}

// Residue applies the combo and sums what every participant still owes or
// is owed.
func Residue(participants []Participant, c Combo) float64 {
	toPay, toReceive := remaining(participants, c.Transactions)
	var sum float64
	for i := range participants {
		sum += math.Abs(toPay[i]) + math.Abs(toReceive[i])
	}
	return sum
}
