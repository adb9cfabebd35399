package main

import (
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-sar/internal/application/alerts"
	"github.com/bryanwahyu/automaton-sar/internal/domain/priority"
)

func newPriorityCmd() *cobra.Command {
	var (
		file    string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Compute the triage priority of an alert file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var a alerts.Alert
			if err := readInput(cmd, file, &a); err != nil {
				return err
			}
			if explain {
				return printJSON(cmd, priority.Explain(a.Transactions, a.AlertType, a.KYC, a.AlertReason))
			}
			return printJSON(cmd, priority.Calculate(a.Transactions, a.AlertType, a.KYC, a.AlertReason))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "-", "alert JSON (alert_type, alert_reason, kyc_data, transaction_data); - for stdin")
	f.BoolVar(&explain, "explain", false, "include the threshold table")
	return cmd
}
