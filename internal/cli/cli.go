// Package cli implements the warikan subcommands.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/susu3304/warikanbot/internal/balance"
)

// Register adds the warikan subcommands to the commander.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	c.Register(&settleCmd{}, "settlement")
	c.Register(&balancesCmd{}, "settlement")
}

// ledgerFlags are shared by every command reading a ledger file.
type ledgerFlags struct {
	precision int
	selector  string
	truncate  string
	decimals  int
	currency  string
	plain     bool

	out io.Writer
}

func (l *ledgerFlags) setFlags(f *flag.FlagSet) {
	f.IntVar(&l.precision, "p", -1, "Decimal places transfers are rounded to. Defaults to the ledger's precision.")
	f.StringVar(&l.selector, "select", "", "JSONPath selecting the ledger inside the file, e.g. $.trips[0].")
	f.StringVar(&l.truncate, "truncate", "none", "Truncate shared costs: none, share or costs.")
	f.IntVar(&l.decimals, "decimals", balance.DefaultDecimals, "Decimal places kept by -truncate.")
	f.StringVar(&l.currency, "currency", "", "ISO 4217 code used to format amounts. Defaults to the ledger's currency.")
	f.BoolVar(&l.plain, "plain", false, "Print raw markdown instead of rendering it for the terminal.")
}

func (l *ledgerFlags) writer() io.Writer {
	if l.out == nil {
		return os.Stdout
	}
	return l.out
}

// load reads the ledger named on the command line and computes the balances.
func (l *ledgerFlags) load(f *flag.FlagSet) (*balance.Ledger, *balance.Sheet, subcommands.ExitStatus) {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one ledger file")
		return nil, nil, subcommands.ExitUsageError
	}
	trunc, err := balance.ParseTruncation(l.truncate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, nil, subcommands.ExitUsageError
	}

	ledger, err := balance.Load(f.Arg(0), l.selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
		return nil, nil, subcommands.ExitFailure
	}
	if l.precision >= 0 {
		ledger.SetPrecision(l.precision)
	}
	if l.currency != "" {
		ledger.Currency = l.currency
	}

	sheet, err := ledger.Calculate(balance.Options{Truncation: trunc, Decimals: l.decimals})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing balances: %v\n", err)
		return nil, nil, subcommands.ExitFailure
	}
	return ledger, sheet, subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal unless plain is set.
func printMarkdown(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
