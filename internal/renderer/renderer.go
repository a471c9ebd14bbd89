// Package renderer presents settlement results as markdown, plain text or
// JSON.
package renderer

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/susu3304/warikanbot/internal/settle"
)

type Options struct {
	Title string
	// Currency is an ISO 4217 code; amounts are printed as plain decimals
	// when it is empty or unknown.
	Currency string
}

type ParticipantView struct {
	Name      string  `json:"name"`
	Costs     float64 `json:"costs"`
	Payments  float64 `json:"payments"`
	ToPay     float64 `json:"to_pay"`
	ToReceive float64 `json:"to_receive"`
}

type TransferView struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Amount  float64 `json:"amount"`
	Rounded float64 `json:"rounded_amount"`
}

// View is the serialisable form of a settlement.
type View struct {
	Precision     int               `json:"precision"`
	Currency      string            `json:"currency,omitempty"`
	Participants  []ParticipantView `json:"participants"`
	Transfers     []TransferView    `json:"transfers"`
	RoundingError float64           `json:"rounding_error"`
}

func JSON(res *settle.Result, currency string) View {
	v := View{
		Precision:     res.Precision,
		Currency:      currency,
		Participants:  make([]ParticipantView, 0, len(res.Participants)),
		Transfers:     make([]TransferView, 0, res.Combo.Len()),
		RoundingError: res.Combo.RoundingError,
	}
	for _, p := range res.Participants {
		v.Participants = append(v.Participants, ParticipantView{
			Name:      p.Name,
			Costs:     p.Costs,
			Payments:  p.Payments,
			ToPay:     p.ToPay,
			ToReceive: p.ToReceive,
		})
	}
	for _, t := range res.Transfers() {
		v.Transfers = append(v.Transfers, TransferView{From: t.From, To: t.To, Amount: t.Amount, Rounded: t.Rounded})
	}
	return v
}

// Markdown renders the balances and the transfers as two tables.
func Markdown(res *settle.Result, opts Options) (string, error) {
	partials := map[string]string{
		"participants": "participants.md",
		"transfers":    "transfers.md",
	}
	return renderTemplate("settlement.md", partials, newTables(res, opts))
}

// BalancesMarkdown renders only the balances table.
func BalancesMarkdown(participants []settle.Participant, precision int, opts Options) (string, error) {
	res := &settle.Result{Participants: participants, Precision: precision}
	return renderTemplate("participants.md", nil, newTables(res, opts))
}

// Plain lists the payable transfers one per line, leaving out those that
// round to zero. namer turns participant names into their display form; nil
// keeps them as is.
func Plain(res *settle.Result, namer func(string) string, currency string) string {
	if namer == nil {
		namer = func(s string) string { return s }
	}
	f := formatter{precision: res.Precision, currency: currency}
	var b strings.Builder
	for _, t := range res.Transfers() {
		if t.Rounded <= 0 {
			continue
		}
		fmt.Fprintf(&b, "%s → %s: %s\n", namer(t.From), namer(t.To), f.format(t.Rounded))
	}
	return b.String()
}

// Amount formats a single value the way the tables do.
func Amount(v float64, precision int, currency string) string {
	return formatter{precision: precision, currency: currency}.format(v)
}

type tables struct {
	Title         string
	Participants  []participantRow
	Transfers     []transferRow
	RoundingError string
}

type participantRow struct {
	Name, Costs, Payments, ToPay, ToReceive string
}

type transferRow struct {
	From, To, Amount string
}

func newTables(res *settle.Result, opts Options) tables {
	f := formatter{precision: res.Precision, currency: opts.Currency}
	t := tables{
		Title:         opts.Title,
		RoundingError: decimal.NewFromFloat(res.Combo.RoundingError).Round(int32(res.Precision + 2)).String(),
	}
	for _, p := range res.Participants {
		t.Participants = append(t.Participants, participantRow{
			Name:      escape(p.Name),
			Costs:     f.format(p.Costs),
			Payments:  f.format(p.Payments),
			ToPay:     f.format(p.ToPay),
			ToReceive: f.format(p.ToReceive),
		})
	}
	for _, tr := range res.Transfers() {
		t.Transfers = append(t.Transfers, transferRow{
			From:   escape(tr.From),
			To:     escape(tr.To),
			Amount: f.format(tr.Rounded),
		})
	}
	return t
}

type formatter struct {
	precision int
	currency  string
}

func (f formatter) format(v float64) string {
	d := decimal.NewFromFloat(v).RoundBank(int32(f.precision))
	if f.currency != "" {
		if cur := money.GetCurrency(f.currency); cur != nil {
			return money.New(d.Shift(int32(cur.Fraction)).RoundBank(0).IntPart(), cur.Code).Display()
		}
	}
	return d.StringFixedBank(int32(f.precision))
}

// escape keeps names from breaking the table layout.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
