package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopvault/loopvault/internal/config"
	"github.com/loopvault/loopvault/internal/fsops"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create the loopvault data directory and a default config file. Edit the
file to set the remote location and backup source before running workflows.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := fsops.NewRealFS()

		paths, err := config.DefaultPaths()
		if err != nil {
			return err
		}
		if err := paths.EnsureDirectories(fs); err != nil {
			return err
		}

		exists, err := fs.Exists(paths.Config)
		if err != nil {
			return err
		}
		if exists && !initForce {
			PrintWarning(fmt.Sprintf("config already exists at %s (use --force to overwrite)", paths.Config))
			return nil
		}

		if err := config.Save(fs, paths.Config, config.Default()); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("wrote default config to %s", paths.Config))
		PrintLabelValue("Next", "set remote and source, then run 'loopvault create'")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
