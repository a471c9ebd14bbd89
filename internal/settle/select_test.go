package settle

import (
	"errors"
	"testing"
)

func combo(txs ...Transaction) Combo { return newCombo(txs) }

func tx(from, to int, amount float64) Transaction { return newTransaction(from, to, amount, 0) }

func TestSelect(t *testing.T) {
	ps := participants(debtor("a", 3), debtor("b", 2), creditor("c", 2.5), creditor("d", 2.5))

	long := combo(tx(0, 2, 1), tx(0, 3, 2), tx(1, 2, 1.5), tx(1, 3, 0.5))
	rough := combo(tx(0, 2, 2.5), tx(0, 3, 0.5), tx(1, 3, 2))  // error 1.0
	smooth := combo(tx(0, 3, 2.5), tx(0, 2, 0.5), tx(1, 2, 2)) // error 1.0, sorts after rough
	exact := combo(tx(0, 2, 3), tx(1, 3, 2), tx(1, 2, 1))      // error 0

	tests := []struct {
		name   string
		combos []Combo
		want   Combo
	}{
		{"fewest transfers win", []Combo{long, rough}, rough},
		{"least rounding error wins", []Combo{rough, exact, smooth}, exact},
		{"names break ties", []Combo{smooth, rough}, rough},
		{"first of identical", []Combo{rough, combo(rough.Transactions...)}, rough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectSlice(ps, tt.combos)
			if err != nil {
				t.Fatalf("SelectSlice() error = %v", err)
			}
			if got.Len() != tt.want.Len() || got.RoundingError != tt.want.RoundingError {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got.Transactions {
				if got.Transactions[i] != tt.want.Transactions[i] {
					t.Errorf("transaction %d = %+v, want %+v", i, got.Transactions[i], tt.want.Transactions[i])
				}
			}
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	if _, err := SelectSlice(nil, nil); !errors.Is(err, ErrNoCombos) {
		t.Errorf("SelectSlice() error = %v, want ErrNoCombos", err)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		amount    float64
		precision int
		want      float64
	}{
		{10.25, 1, 10.2},
		{10.35, 1, 10.4},
		{2.5, 0, 2},
		{3.5, 0, 4},
		{14.333333333, 2, 14.33},
		{50, 1, 50},
	}
	for _, tt := range tests {
		if got := Round(tt.amount, tt.precision); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.amount, tt.precision, got, tt.want)
		}
	}
}

func TestCombosStopEarly(t *testing.T) {
	ps := participants(debtor("a", 2), debtor("b", 2), creditor("c", 1), creditor("d", 1), creditor("e", 2))
	n := 0
	for range Combos(ps, 1) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d combos, want 2", n)
	}
}

func TestCombosDoNotShareTransactions(t *testing.T) {
	ps := participants(debtor("Alice", 30), creditor("Bob", 10), creditor("Carol", 20))
	var all []Combo
	for c := range Combos(ps, 1) {
		all = append(all, c)
	}
	if len(all) != 2 {
		t.Fatalf("got %d combos, want 2", len(all))
	}
	all[0].Transactions[0].Amount = -1
	if all[1].Transactions[0].Amount == -1 || all[1].Transactions[1].Amount == -1 {
		t.Errorf("combos share their transactions")
	}
	if all[0].Transactions[0].To != 1 || all[1].Transactions[0].To != 2 {
		t.Errorf("unexpected enumeration order: %+v", all)
	}
}

func TestCandidates(t *testing.T) {
	ps := participants(debtor("Alice", 30), Balance{Name: "Dave", Costs: 5, Payments: 5}, creditor("Bob", 10), creditor("Carol", 20))

	got := Candidates(ps, nil, 1)
	want := []Transaction{
		{From: 0, To: 2, Amount: 10, Rounded: 10},
		{From: 0, To: 3, Amount: 20, Rounded: 20},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	got = Candidates(ps, []Transaction{got[0]}, 1)
	if len(got) != 1 || got[0].To != 3 || got[0].Amount != 20 {
		t.Errorf("after paying Bob, candidates = %+v, want only Alice -> Carol 20", got)
	}

	got = Candidates(ps, []Transaction{{From: 0, To: 2, Amount: 10}, {From: 0, To: 3, Amount: 20}}, 1)
	if len(got) != 0 {
		t.Errorf("settled group has candidates %+v", got)
	}
}
