package cli

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new encrypted backup image",
	Long: `Create and format a new encrypted image file on the remote host.

The remote directory must already be mounted (loopvault debug connect).
The image is allocated at the configured size, formatted as a LUKS volume
with the key file, given an ext4 filesystem, and handed to the invoking
user. The stack is closed again afterwards, so create leaves nothing open.

Formatting destroys any existing image contents; both destructive steps are
announced before they run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runWorkflow("create"); err != nil {
			return err
		}
		PrintSuccess("encrypted image created")
		return nil
	},
}
