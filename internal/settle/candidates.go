package settle

// Candidates returns every transfer that may follow the already made ones.
// Participants are visited in slice order, debtors in the outer loop.
func Candidates(participants []Participant, made []Transaction, precision int) []Transaction {
	toPay, toReceive := remaining(participants, made)
	return candidates(toPay, toReceive, precision, epsilonOf(participants))
}

// remaining subtracts the made transfers from each participant's obligations,
// in the order they were made.
func remaining(participants []Participant, made []Transaction) (toPay, toReceive []float64) {
	toPay = make([]float64, len(participants))
	toReceive = make([]float64, len(participants))
	for i, p := range participants {
		toPay[i] = p.ToPay
		toReceive[i] = p.ToReceive
	}
	for _, t := range made {
		toPay[t.From] -= t.Amount
		toReceive[t.To] -= t.Amount
	}
	return toPay, toReceive
}

// candidates treats obligations at or under eps as settled.
func candidates(toPay, toReceive []float64, precision int, eps float64) []Transaction {
	var out []Transaction
	for from, pay := range toPay {
		if pay <= eps {
			continue
		}
		for to, receive := range toReceive {
			if to == from || receive <= eps {
				continue
			}
			out = append(out, newTransaction(from, to, min(pay, receive), precision))
		}
	}
	return out
}
