package cli

import (
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a full backup cycle",
	Long: `Open the full stack, mirror the configured source directory into the
encrypted filesystem with rsync, and close the stack again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runWorkflow("backup"); err != nil {
			return err
		}
		PrintSuccess("backup complete")
		return nil
	},
}
