// Package balance turns recorded payments into per-participant costs and
// payments.
package balance

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultShared    = "kaikki"
	DefaultPrecision = 1
)

var ErrInvalidLedger = errors.New("invalid ledger")

// Ledger is the raw input of a settlement.
//
// Payments is keyed by payer, then by beneficiary. Amounts recorded under
// the Shared marker are split across every participant.
type Ledger struct {
	Participants []string                      `json:"participants"`
	Payments     map[string]map[string]float64 `json:"payments"`
	Shared       string                        `json:"shared,omitempty"`
	Precision    *int                          `json:"precision,omitempty"`
	// Weights scales each participant's part of the shared costs; missing
	// participants weigh 1.
	Weights  map[string]float64 `json:"weights,omitempty"`
	Currency string             `json:"currency,omitempty"`
}

func (l *Ledger) SharedMarker() string {
	if l.Shared == "" {
		return DefaultShared
	}
	return l.Shared
}

func (l *Ledger) RoundingPrecision() int {
	if l.Precision == nil {
		return DefaultPrecision
	}
	return *l.Precision
}

func (l *Ledger) SetPrecision(p int) { l.Precision = &p }

func (l *Ledger) weight(name string) float64 {
	if w, ok := l.Weights[name]; ok {
		return w
	}
	return 1
}

// Validate reports the first problem making the ledger unusable.
func (l *Ledger) Validate() error {
	if len(l.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidLedger)
	}
	known := make(map[string]struct{}, len(l.Participants))
	for _, name := range l.Participants {
		if name == "" {
			return fmt.Errorf("%w: empty participant name", ErrInvalidLedger)
		}
		if name == l.SharedMarker() {
			return fmt.Errorf("%w: participant %q uses the shared marker", ErrInvalidLedger, name)
		}
		if _, dup := known[name]; dup {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidLedger, name)
		}
		known[name] = struct{}{}
	}
	for payer, entries := range l.Payments {
		if _, ok := known[payer]; !ok {
			return fmt.Errorf("%w: unknown payer %q", ErrInvalidLedger, payer)
		}
		for beneficiary, amount := range entries {
			if _, ok := known[beneficiary]; !ok && beneficiary != l.SharedMarker() {
				return fmt.Errorf("%w: %q paid for unknown participant %q", ErrInvalidLedger, payer, beneficiary)
			}
			if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
				return fmt.Errorf("%w: %q paid %v for %q", ErrInvalidLedger, payer, amount, beneficiary)
			}
		}
	}
	var wsum float64
	for _, name := range l.Participants {
		w := l.weight(name)
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight of %q is %v", ErrInvalidLedger, name, w)
		}
		wsum += w
	}
	for name := range l.Weights {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: weight for unknown participant %q", ErrInvalidLedger, name)
		}
	}
	if wsum == 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidLedger)
	}
	if l.RoundingPrecision() < 0 {
		return fmt.Errorf("%w: negative precision %d", ErrInvalidLedger, l.RoundingPrecision())
	}
	return nil
}
