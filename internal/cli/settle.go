package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/susu3304/warikanbot/internal/renderer"
	"github.com/susu3304/warikanbot/internal/settle"
)

type settleCmd struct {
	ledgerFlags
	json bool
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "compute the fewest transfers settling a ledger" }
func (*settleCmd) Usage() string {
	return `warikan settle [-p <precision>] [-select <jsonpath>] [-truncate none|share|costs] [-decimals <n>] [-currency <code>] [-json] [-plain] <ledger.json>

  Prints every participant's balance and the transfers settling them.
  Among the solutions with the fewest transfers, the one with the smallest
  rounding error is chosen.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.BoolVar(&c.json, "json", false, "Print the result as JSON.")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, sheet, status := c.load(f)
	if status != subcommands.ExitSuccess {
		return status
	}

	res, err := settle.Settle(ctx, sheet.Participants, settle.Options{
		Precision: ledger.RoundingPrecision(),
		Tolerance: sheet.Slack,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error settling: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json {
		enc := json.NewEncoder(c.writer())
		enc.SetIndent("", "  ")
		if err := enc.Encode(renderer.JSON(res, ledger.Currency)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	md, err := renderer.Markdown(res, renderer.Options{Title: filepath.Base(f.Arg(0)), Currency: ledger.Currency})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := printMarkdown(c.writer(), md, c.plain); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
