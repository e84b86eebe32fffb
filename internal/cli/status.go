package cli

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loopvault/loopvault/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the backup stack",
	Long: `Inspect the mount table and on-disk state and report which layers of the
stack are currently active. Read-only; runs even while another invocation
holds the workflow lock.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine()
		if err != nil {
			return err
		}

		result, err := eng.Status(context.Background())
		if err != nil {
			return err
		}

		printStatus(result)
		return nil
	},
}

func printStatus(result *engine.StatusResult) {
	PrintSection("Stack Status")
	PrintLabelValue("Remote mounted", yesNo(result.RemoteMounted))

	if result.LoopDevice != "" {
		PrintLabelValue("Loop device", result.LoopDevice)
	} else {
		PrintLabelValue("Loop device", "none allocated")
	}

	if result.ImagePresent {
		PrintLabelValue("Image file", humanize.Bytes(uint64(result.ImageSize)))
	} else {
		PrintLabelValue("Image file", "not visible")
	}

	PrintLabelValue("Volume unlocked", yesNo(result.VolumeOpen))
	PrintLabelValue("Filesystem mounted", yesNo(result.DataMounted))

	if result.KeyPresent {
		PrintLabelValue("Key file", result.KeyPath+" ("+humanize.Bytes(uint64(result.KeySize))+")")
	} else {
		PrintLabelValue("Key file", result.KeyPath+" (missing)")
	}
}
