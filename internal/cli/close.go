package cli

import (
	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the full backup stack",
	Long: `Unmount the filesystem, lock the encrypted volume, detach the loop device
and unmount the remote directory. Safe to run against a partially-open or
already-closed stack.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runWorkflow("close"); err != nil {
			return err
		}
		PrintSuccess("backup stack is closed")
		return nil
	},
}
