package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <name|path>",
	Short: "Remove the sentinel file",
	Long: `Removes the sentinel file of the lock. Fails with exit code 2 if the lock
is not held, and with exit code 3 if the file cannot be removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLock(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := JsonLockInfo{Lock: args[0], Path: path, Action: "unlock"}

		fl, err := newFileLock(path)
		if err != nil {
			return report(cmd, info, "", err)
		}
		defer fl.Detach()

		if err := fl.Unlock(); err != nil {
			info.Locked = fl.Locked()
			return report(cmd, info, "", err)
		}

		return report(cmd, info, fmt.Sprintf("🔓 Unlocked %s", path), nil)
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}
