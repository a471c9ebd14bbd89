package settle

import "iter"

// Combos enumerates every complete transfer sequence reachable by repeatedly
// taking one of the Candidates. The sequence is produced lazily, depth first;
// breaking out of the range loop stops the search.
//
// The number of combos grows combinatorially with the number of unsettled
// participants, so callers are expected to keep the group small.
func Combos(participants []Participant, precision int) iter.Seq[Combo] {
	return func(yield func(Combo) bool) {
		toPay, toReceive := remaining(participants, nil)
		s := &search{
			toPay:     toPay,
			toReceive: toReceive,
			precision: precision,
			eps:       epsilonOf(participants),
			made:      make([]Transaction, 0, len(participants)),
			yield:     yield,
		}
		s.walk()
	}
}

// search holds the state shared by every branch. Obligations and the
// accumulated transfers are updated on the way down and restored on the way
// back, so branches never copy them.
type search struct {
	toPay     []float64
	toReceive []float64
	precision int
	eps       float64
	made      []Transaction
	yield     func(Combo) bool
}

// walk returns false once the consumer asked to stop.
func (s *search) walk() bool {
	next := candidates(s.toPay, s.toReceive, s.precision, s.eps)
	if len(next) == 0 {
		return s.yield(newCombo(s.made))
	}
	for _, t := range next {
		pay, receive := s.toPay[t.From], s.toReceive[t.To]
		s.toPay[t.From] -= t.Amount
		s.toReceive[t.To] -= t.Amount
		s.made = append(s.made, t)

		ok := s.walk()

		s.made = s.made[:len(s.made)-1]
		s.toPay[t.From], s.toReceive[t.To] = pay, receive
		if !ok {
			return false
		}
	}
	return true
}
