// Package cli wires configuration, drive, loader and orchestrator together
// behind the skyloader command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the skyloader command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "skyloader",
		Short: "Load spreadsheets from a cloud drive inbox into a database",
		Long: `skyloader picks up CSV and Excel files from the Inbox folder of a cloud drive,
loads each one into a table named after the file and moves it to Archive when
the load succeeded or to Error when it did not. The run log is uploaded to the
Log folder at the end of the run.

Exit Codes:
  0  - Success (including runs where individual files failed)
  1  - Run failed (drive or database unreachable, relocation failed)
  2  - CLI usage or configuration error
  3  - Panic or unexpected system error`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file (default skyloader.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(newRunCmd(), newInspectCmd(), newFoldersCmd())
	return root
}

// Execute runs the root command with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return ""
	}
	return path
}
