package renderer

import (
	"context"
	"strings"
	"testing"

	"github.com/Rhymond/go-money"
	"github.com/susu3304/warikanbot/internal/settle"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

func chain(t *testing.T) *settle.Result {
	t.Helper()
	ps := settle.NewParticipants([]settle.Balance{
		{Name: "Alice", Costs: 30},
		{Name: "Bob", Payments: 10},
		{Name: "Carol", Payments: 20},
	})
	res, err := settle.Settle(context.Background(), ps, settle.Options{Precision: 1})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	return res
}

// tableRows parses markdown and returns the number of body rows of each table.
func tableRows(t *testing.T, md string) []int {
	t.Helper()
	source := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))
	var rows []int
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != east.KindTable {
			return ast.WalkContinue, nil
		}
		count := 0
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Kind() == east.KindTableRow {
				count++
			}
		}
		rows = append(rows, count)
		return ast.WalkSkipChildren, nil
	})
	return rows
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(chain(t), Options{Title: "Cabin"})
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	rows := tableRows(t, md)
	if len(rows) != 2 || rows[0] != 3 || rows[1] != 2 {
		t.Fatalf("table rows = %v, want [3 2]\n%s", rows, md)
	}
	for _, want := range []string{
		"# Cabin",
		"| Alice | 30.0 | 0.0 | 30.0 | 0.0 |",
		"| Alice | Bob | 10.0 |",
		"| Alice | Carol | 20.0 |",
		"Total rounding error: 0",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown misses %q:\n%s", want, md)
		}
	}
}

func TestMarkdownSettled(t *testing.T) {
	ps := settle.NewParticipants([]settle.Balance{{Name: "a|b", Costs: 5, Payments: 5}})
	res, err := settle.Settle(context.Background(), ps, settle.Options{})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	md, err := Markdown(res, Options{})
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if rows := tableRows(t, md); len(rows) != 1 || rows[0] != 1 {
		t.Errorf("table rows = %v, want [1]\n%s", rows, md)
	}
	if !strings.Contains(md, "no transfer needed") || !strings.Contains(md, `a\|b`) {
		t.Errorf("unexpected markdown:\n%s", md)
	}
}

func TestBalancesMarkdown(t *testing.T) {
	res := chain(t)
	md, err := BalancesMarkdown(res.Participants, 2, Options{Currency: "EUR"})
	if err != nil {
		t.Fatalf("BalancesMarkdown() error = %v", err)
	}
	if rows := tableRows(t, md); len(rows) != 1 || rows[0] != 3 {
		t.Errorf("table rows = %v, want [3]\n%s", rows, md)
	}
	if !strings.Contains(md, "€") || !strings.Contains(md, "30.00") {
		t.Errorf("amounts not formatted as euros:\n%s", md)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		f    formatter
		v    float64
		want string
	}{
		{formatter{precision: 1}, 14.333, "14.3"},
		{formatter{precision: 0}, 2.5, "2"},
		{formatter{precision: 2}, 7, "7.00"},
		{formatter{precision: 1, currency: "XXX-unknown"}, 1.25, "1.2"},
		{formatter{precision: 1, currency: "JPY"}, 12.5, money.New(12, "JPY").Display()},
		{formatter{precision: 1, currency: "JPY"}, 13.5, money.New(14, "JPY").Display()},
		{formatter{precision: 0, currency: "JPY"}, 12.5, money.New(12, "JPY").Display()},
	}
	for _, tt := range tests {
		if got := tt.f.format(tt.v); got != tt.want {
			t.Errorf("format(%v) with %+v = %q, want %q", tt.v, tt.f, got, tt.want)
		}
	}
}

func TestPlain(t *testing.T) {
	got := Plain(chain(t), func(s string) string { return "<@" + s + ">" }, "")
	want := "<@Alice> → <@Bob>: 10.0\n<@Alice> → <@Carol>: 20.0\n"
	if got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
}

func TestPlainSkipsZeroTransfers(t *testing.T) {
	ps := settle.NewParticipants([]settle.Balance{
		{Name: "Alice", Costs: 30.4},
		{Name: "Bob", Costs: 0.4},
		{Name: "Carol", Payments: 30.8},
	})
	res, err := settle.Settle(context.Background(), ps, settle.Options{Precision: 0})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if got, want := Plain(res, nil, ""), "Alice → Carol: 30\n"; got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
}

func TestJSON(t *testing.T) {
	v := JSON(chain(t), "EUR")
	if v.Precision != 1 || v.Currency != "EUR" {
		t.Errorf("view header = %d/%q", v.Precision, v.Currency)
	}
	if len(v.Participants) != 3 || len(v.Transfers) != 2 {
		t.Fatalf("view has %d participants and %d transfers", len(v.Participants), len(v.Transfers))
	}
	if tr := v.Transfers[1]; tr.From != "Alice" || tr.To != "Carol" || tr.Rounded != 20 {
		t.Errorf("second transfer = %+v", tr)
	}
}
