package cli

import (
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the full backup stack",
	Long: `Mount the remote directory, attach the loop device to the image file,
unlock the encrypted volume and mount its filesystem.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runWorkflow("open"); err != nil {
			return err
		}
		PrintSuccess("backup stack is open")
		return nil
	},
}
