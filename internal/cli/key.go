package cli

import (
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Generate the volume key file if absent",
	Long: `Ensure the key material used to unlock the encrypted volume exists.

An existing key file is never overwritten. When a user-supplied key path is
configured, no generation occurs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runWorkflow("mkkey"); err != nil {
			return err
		}
		PrintSuccess("key material is in place")
		return nil
	},
}
