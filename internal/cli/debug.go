package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// debugOps maps each recovery subcommand to its engine workflow and a short
// description. One entry per layer operation, matching the stack order.
var debugOps = []struct {
	use      string
	workflow string
	short    string
}{
	{"connect", "connect", "Mount the remote directory"},
	{"disconnect", "disconnect", "Unmount the remote directory"},
	{"attach", "attach", "Attach the loop device to the image file"},
	{"detach", "detach", "Detach the allocated loop device"},
	{"detach-all", "detach-all", "Detach ALL loop devices system-wide (recovery)"},
	{"unlock", "unlock", "Unlock the encrypted volume"},
	{"lock", "lock", "Lock the encrypted volume"},
	{"mount", "mount", "Mount the decrypted filesystem"},
	{"unmount", "unmount", "Unmount the decrypted filesystem"},
	{"sync", "sync", "Run the rsync mirror step only"},
	{"mkimage", "mkimage", "Allocate the image file on the remote mount"},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Run a single layer operation for manual recovery",
	Long: `Run one layer operation directly, outside the normal workflows. Useful for
recovering a stack left in an inconsistent state.`,
}

func init() {
	for _, op := range debugOps {
		workflow := op.workflow
		debugCmd.AddCommand(&cobra.Command{
			Use:   op.use,
			Short: op.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := runWorkflow(workflow); err != nil {
					return err
				}
				PrintSuccess(fmt.Sprintf("%s done", workflow))
				return nil
			},
		})
	}
}
