// Conveyor runs declarative task pipelines defined in a YAML file.
//
// Usage:
//
//	conveyor run [--config FILE] [--pipeline NAME] [--verbose]
//	conveyor vault <set|list|rm> ...
//	conveyor version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "conveyor",
		Short:         "Conveyor — declarative task pipeline runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newVaultCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
