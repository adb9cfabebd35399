// sarctl scores cases and alerts from the command line and seeds the
// knowledge store.
//
// Usage:
//
//	sarctl risk -f case.json
//	sarctl priority -f alert.json [--explain]
//	sarctl seed -c config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sarctl",
		Short:         "Score SAR cases and alerts, manage the knowledge store",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newRiskCmd(), newPriorityCmd(), newSeedCmd())
	root.Version = version
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
