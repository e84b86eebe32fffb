package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loopvault/loopvault/internal/engine"
)

var (
	// verbose forces confirmation mode on, regardless of config.
	verbose bool
)

// rootCmd is the root command for loopvault.
var rootCmd = &cobra.Command{
	Use:     "loopvault",
	Version: "dev",
	Short:   "Encrypted backups to an untrusted remote host",
	Long: `loopvault backs up a local directory into an encrypted image file on a
remote host that never sees plaintext.

It stacks an sshfs mount, a loop device bound to the image file, a LUKS
volume unlocked from it, and a local filesystem mount, then mirrors data in
with rsync and tears the stack down again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Preview and confirm every privileged command before running it")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "stack-lifecycle",
		Title: "Stack Lifecycle:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "setup",
		Title: "Setup:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "diagnostics",
		Title: "Diagnostics & Recovery:",
	})

	openCmd.GroupID = "stack-lifecycle"
	closeCmd.GroupID = "stack-lifecycle"
	createCmd.GroupID = "stack-lifecycle"
	backupCmd.GroupID = "stack-lifecycle"
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(backupCmd)

	initCmd.GroupID = "setup"
	keyCmd.GroupID = "setup"
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(keyCmd)

	statusCmd.GroupID = "diagnostics"
	debugCmd.GroupID = "diagnostics"
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(debugCmd)
}

// Execute executes the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		return fmt.Errorf("%w: %v", engine.ErrUnknownWorkflow, err)
	}
	return err
}
