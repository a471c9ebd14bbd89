package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/susu3304/warikanbot/internal/renderer"
)

const ledgerJSON = `{
	"participants": ["Alice", "Bob", "Carol"],
	"payments": {
		"Alice": {"kaikki": 30},
		"Bob": {"Carol": 6}
	},
	"precision": 1
}`

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run parses args with the command's flags and executes it.
func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), f)
}

func TestSettlePlain(t *testing.T) {
	path := writeLedger(t, ledgerJSON)
	var out bytes.Buffer
	cmd := &settleCmd{ledgerFlags: ledgerFlags{out: &out}}

	if got := run(t, cmd, "-plain", path); got != subcommands.ExitSuccess {
		t.Fatalf("status = %v", got)
	}
	for _, want := range []string{
		"# ledger.json",
		"| Alice | 10.0 | 30.0 | 0.0 | 20.0 |",
		"| Bob | Alice | 4.0 |",
		"| Carol | Alice | 16.0 |",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestSettleJSON(t *testing.T) {
	path := writeLedger(t, ledgerJSON)
	var out bytes.Buffer
	cmd := &settleCmd{ledgerFlags: ledgerFlags{out: &out}}

	if got := run(t, cmd, "-json", "-p", "0", "-currency", "EUR", path); got != subcommands.ExitSuccess {
		t.Fatalf("status = %v", got)
	}
	var view renderer.View
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if view.Precision != 0 || view.Currency != "EUR" || len(view.Transfers) != 2 {
		t.Errorf("view = %+v", view)
	}
}

func TestSettleSelect(t *testing.T) {
	path := writeLedger(t, `{"trips": [{"participants": ["A", "B"], "payments": {"A": {"kaikki": 10}}}]}`)
	var out bytes.Buffer
	cmd := &settleCmd{ledgerFlags: ledgerFlags{out: &out}}

	if got := run(t, cmd, "-plain", "-select", "$.trips[0]", path); got != subcommands.ExitSuccess {
		t.Fatalf("status = %v", got)
	}
	if !strings.Contains(out.String(), "| B | A | 5.0 |") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestSettleRendered(t *testing.T) {
	path := writeLedger(t, ledgerJSON)
	var out bytes.Buffer
	cmd := &settleCmd{ledgerFlags: ledgerFlags{out: &out}}

	if got := run(t, cmd, path); got != subcommands.ExitSuccess {
		t.Fatalf("status = %v", got)
	}
	if !strings.Contains(out.String(), "Carol") {
		t.Errorf("rendered output misses participants:\n%s", out.String())
	}
}

func TestBalances(t *testing.T) {
	path := writeLedger(t, ledgerJSON)
	var out bytes.Buffer
	cmd := &balancesCmd{ledgerFlags: ledgerFlags{out: &out}}

	if got := run(t, cmd, "-plain", "-truncate", "share", "-decimals", "1", path); got != subcommands.ExitSuccess {
		t.Fatalf("status = %v", got)
	}
	if !strings.Contains(out.String(), "| Carol | 16.0 | 0.0 | 16.0 | 0.0 |") {
		t.Errorf("output:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Transfers") {
		t.Errorf("balances printed transfers:\n%s", out.String())
	}
}

func TestErrors(t *testing.T) {
	valid := writeLedger(t, ledgerJSON)
	invalid := writeLedger(t, `{"participants": ["A", "A"]}`)
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"no file", nil, subcommands.ExitUsageError},
		{"two files", []string{valid, valid}, subcommands.ExitUsageError},
		{"bad truncation", []string{"-truncate", "floor", valid}, subcommands.ExitUsageError},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.json")}, subcommands.ExitFailure},
		{"invalid ledger", []string{invalid}, subcommands.ExitFailure},
		{"bad selector", []string{"-select", "$.nothing", valid}, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &settleCmd{ledgerFlags: ledgerFlags{out: &bytes.Buffer{}}}
			if got := run(t, cmd, tt.args...); got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, name := range []string{"settle", "balances"} {
		sub, ok := c.Sub[name]
		if !ok {
			t.Fatalf("no completion for %s", name)
		}
		if _, ok := sub.Flags["truncate"]; !ok {
			t.Errorf("%s: no completion for -truncate", name)
		}
	}
	if _, ok := c.Sub["balances"].Flags["json"]; ok {
		t.Error("balances completes -json")
	}
}
