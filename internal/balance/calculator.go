package balance

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/susu3304/warikanbot/internal/settle"
)

// Truncation selects when amounts are floored before settling.
type Truncation int

const (
	// TruncateNone keeps full precision.
	TruncateNone Truncation = iota
	// TruncateShare floors each participant's part of the shared costs
	// before adding their direct costs.
	TruncateShare
	// TruncateCosts floors the summed costs.
	TruncateCosts
)

func (t Truncation) String() string {
	switch t {
	case TruncateShare:
		return "share"
	case TruncateCosts:
		return "costs"
	default:
		return "none"
	}
}

func ParseTruncation(s string) (Truncation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TruncateNone, nil
	case "share":
		return TruncateShare, nil
	case "costs":
		return TruncateCosts, nil
	}
	return TruncateNone, fmt.Errorf("unknown truncation %q (want none, share or costs)", s)
}

const DefaultDecimals = 2

type Options struct {
	Truncation Truncation
	// Decimals kept when truncating; zero means DefaultDecimals.
	Decimals int
}

func (o Options) decimals() int {
	if o.Decimals <= 0 {
		return DefaultDecimals
	}
	return o.Decimals
}

// Sheet is the outcome of a calculation, ready to be settled.
type Sheet struct {
	Participants []settle.Participant
	SharedCosts  float64
	// Slack is the largest amount truncation may have dropped; settling
	// should accept that much unsettled remainder.
	Slack float64
}

// SharedCosts sums every amount recorded under the shared marker.
func (l *Ledger) SharedCosts() float64 {
	var sum float64
	for _, payer := range l.Participants {
		sum += l.Payments[payer][l.SharedMarker()]
	}
	return sum
}

// Share is the part of the shared costs carried by name.
func (l *Ledger) Share(name string) float64 {
	var wsum float64
	for _, p := range l.Participants {
		wsum += l.weight(p)
	}
	if wsum == 0 {
		return 0
	}
	return l.SharedCosts() * l.weight(name) / wsum
}

// Costs is what name is responsible for: their share plus everything paid
// on their behalf.
func (l *Ledger) Costs(name string, opts Options) float64 {
	share := l.Share(name)
	if opts.Truncation == TruncateShare {
		share = truncate(share, opts.decimals())
	}
	costs := share
	for _, payer := range l.Participants {
		costs += l.Payments[payer][name]
	}
	if opts.Truncation == TruncateCosts {
		costs = truncate(costs, opts.decimals())
	}
	return costs
}

// PaymentsOf is everything name paid out, shared entries included.
func (l *Ledger) PaymentsOf(name string) float64 {
	entries := l.Payments[name]
	sum := entries[l.SharedMarker()]
	for _, beneficiary := range l.Participants {
		sum += entries[beneficiary]
	}
	return sum
}

// Calculate validates the ledger and derives every participant's balance,
// in ledger order.
func (l *Ledger) Calculate(opts Options) (*Sheet, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	balances := make([]settle.Balance, len(l.Participants))
	for i, name := range l.Participants {
		balances[i] = settle.Balance{
			Name:     name,
			Costs:    l.Costs(name, opts),
			Payments: l.PaymentsOf(name),
		}
	}
	sheet := &Sheet{
		Participants: settle.NewParticipants(balances),
		SharedCosts:  l.SharedCosts(),
	}
	if opts.Truncation != TruncateNone {
		sheet.Slack = float64(len(l.Participants)) * math.Pow10(-opts.decimals())
	}
	return sheet, nil
}

func truncate(v float64, decimals int) float64 {
	return decimal.NewFromFloat(v).Truncate(int32(decimals)).InexactFloat64()
}
