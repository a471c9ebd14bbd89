package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/susu3304/warikanbot/internal/renderer"
)

type balancesCmd struct {
	ledgerFlags
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "display what every participant paid and owes" }
func (*balancesCmd) Usage() string {
	return `warikan balances [-p <precision>] [-select <jsonpath>] [-truncate none|share|costs] [-decimals <n>] [-currency <code>] [-plain] <ledger.json>

  Prints the costs, payments and net balance of every participant without
  searching transfers.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *balancesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, sheet, status := c.load(f)
	if status != subcommands.ExitSuccess {
		return status
	}
	md, err := renderer.BalancesMarkdown(sheet.Participants, ledger.RoundingPrecision(), renderer.Options{Currency: ledger.Currency})
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
