package cli

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var ledgerFlagPredictors = map[string]complete.Predictor{
	"p":        predict.Something,
	"select":   predict.Something,
	"truncate": predict.Set{"none", "share", "costs"},
	"decimals": predict.Something,
	"currency": predict.Set{"EUR", "JPY", "USD", "GBP", "CHF", "SEK"},
	"plain":    predict.Nothing,
}

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	settleFlags := map[string]complete.Predictor{"json": predict.Nothing}
	for k, v := range ledgerFlagPredictors {
		settleFlags[k] = v
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"settle":   {Flags: settleFlags, Args: predict.Files("*.json")},
			"balances": {Flags: ledgerFlagPredictors, Args: predict.Files("*.json")},
			"help":     {Args: predict.Set{"settle", "balances"}},
			"flags":    {},
			"commands": {},
		},
	}
}
