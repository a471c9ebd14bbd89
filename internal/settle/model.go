// Package settle finds the transfers that settle a group's shared expenses.
//
// Every way of pairing an unsettled debtor with an unsettled creditor is
// explored depth-first; the sequences that use the fewest transfers are kept
// and the one losing the least to rounding wins.
package settle

import (
	"math"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance under which an obligation counts as settled.
const Epsilon = 1e-9

// relativeEpsilon scales the tolerance with the amounts in play: float64
// drift on large balances exceeds a fixed Epsilon.
const relativeEpsilon = 1e-12

// EpsilonFor is the settled tolerance for a group whose debts sum to total.
// It never drops below Epsilon.
func EpsilonFor(total float64) float64 {
	return max(Epsilon, math.Abs(total)*relativeEpsilon)
}

func epsilonOf(participants []Participant) float64 {
	var total float64
	for _, p := range participants {
		total += p.ToPay
	}
	return EpsilonFor(total)
}

type Participant struct {
	Index     int
	Name      string
	Costs     float64
	Payments  float64
	ToPay     float64
	ToReceive float64
}

// NewParticipant derives ToPay and ToReceive from costs and payments.
func NewParticipant(index int, name string, costs, payments float64) Participant {
	return Participant{
		Index:     index,
		Name:      name,
		Costs:     costs,
		Payments:  payments,
		ToPay:     math.Max(0, costs-payments),
		ToReceive: math.Max(0, payments-costs),
	}
}

// Balance is a participant's raw totals, before indexes are assigned.
type Balance struct {
	Name     string
	Costs    float64
	Payments float64
}

// NewParticipants indexes balances in the order given.
func NewParticipants(balances []Balance) []Participant {
	out := make([]Participant, len(balances))
	for i, b := range balances {
		out[i] = NewParticipant(i, b.Name, b.Costs, b.Payments)
	}
	return out
}

// Settled reports whether the participant neither owes nor is owed anything.
func (p Participant) Settled() bool {
	return p.ToPay <= Epsilon && p.ToReceive <= Epsilon
}

type Transaction struct {
	From    int
	To      int
	Amount  float64
	Rounded float64
}

func newTransaction(from, to int, amount float64, precision int) Transaction {
	return Transaction{From: from, To: to, Amount: amount, Rounded: Round(amount, precision)}
}

// RoundingError is the absolute difference between the payable and the exact amount.
func (t Transaction) RoundingError() float64 {
	return math.Abs(t.Rounded - t.Amount)
}

// Combo is one complete sequence of transfers settling every balance.
type Combo struct {
	Transactions  []Transaction
	RoundingError float64
}

func newCombo(txs []Transaction) Combo {
	c := Combo{Transactions: make([]Transaction, len(txs))}
	copy(c.Transactions, txs)
	for _, t := range c.Transactions {
		c.RoundingError += t.RoundingError()
	}
	return c
}

func (c Combo) Len() int { return len(c.Transactions) }

// Round rounds half to even at the given number of decimal places.
func Round(amount float64, precision int) float64 {
	return decimal.NewFromFloat(amount).RoundBank(int32(precision)).InexactFloat64()
}
