// Command certctl runs registry maintenance tasks from the command line,
// typically via cron: status refreshes, reminder sweeps, catalog imports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "certctl",
		Short:         "Certificate registry maintenance tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRefreshStatusesCmd(),
		newSendRemindersCmd(),
		newImportStandardsCmd(),
		newNextNumberCmd(),
		newCreateAdminCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
