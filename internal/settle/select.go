package settle

import (
	"iter"
	"math"
	"slices"
	"strings"
)

// Select picks the combo with the fewest transfers and, among those, the
// smallest rounding error. Rounding errors closer than Epsilon tie; ties go
// to the transfer sequence whose (from, to) names sort first, then to the
// first one encountered.
func Select(participants []Participant, combos iter.Seq[Combo]) (Combo, error) {
	sel := selector{participants: participants}
	for c := range combos {
		sel.offer(c)
	}
	return sel.best()
}

// SelectSlice is Select over an already materialised list.
func SelectSlice(participants []Participant, combos []Combo) (Combo, error) {
	return Select(participants, slices.Values(combos))
}

type selector struct {
	participants []Participant
	found        bool
	current      Combo
}

func (s *selector) offer(c Combo) {
	if !s.found || s.better(c, s.current) {
		s.current = c
		s.found = true
	}
}

func (s *selector) best() (Combo, error) {
	if !s.found {
		return Combo{}, ErrNoCombos
	}
	return s.current, nil
}

// better reports whether a strictly beats b.
func (s *selector) better(a, b Combo) bool {
	// fewest transfers first
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	// then the least rounding error
	if math.Abs(a.RoundingError-b.RoundingError) > Epsilon {
		return a.RoundingError < b.RoundingError
	}
	return s.compareNames(a, b) < 0
}

func (s *selector) compareNames(a, b Combo) int {
	for i := range min(a.Len(), b.Len()) {
		ta, tb := a.Transactions[i], b.Transactions[i]
		if c := strings.Compare(s.name(ta.From), s.name(tb.From)); c != 0 {
			return c
		}
		if c := strings.Compare(s.name(ta.To), s.name(tb.To)); c != 0 {
			return c
		}
	}
	return a.Len() - b.Len()
}

func (s *selector) name(i int) string {
	if i < 0 || i >= len(s.participants) {
		return ""
	}
	return s.participants[i].Name
}
