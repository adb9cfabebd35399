package main

import (
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/bryanwahyu/automaton-sar/internal/domain/risk"
)

func newRiskCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Compute the risk assessment of a case file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in cases.Input
			if err := readInput(cmd, file, &in); err != nil {
				return err
			}
			return printJSON(cmd, risk.Score(in))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "case JSON (customer_data, kyc_data, transaction_data, alert_reason); - for stdin")
	return cmd
}
