package cmd

import (
	"fmt"

	"github.com/hydraide/sentinel/app/core/filelock"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock <name|path>",
	Short: "Create the sentinel file and leave it in place",
	Long: `Creates the sentinel file for the lock and exits. The lock stays held after
the command returns, until 'sentinelctl unlock' (or anyone else) removes the file.
Fails with exit code 2 if the sentinel already exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLock(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := JsonLockInfo{Lock: args[0], Path: path, Action: "lock"}

		fl, err := newFileLock(path)
		if err != nil {
			return report(cmd, info, "", err)
		}
		// the sentinel outlives this process, never release it implicitly
		defer fl.Detach()

		if fl.Locked() {
			info.Locked = true
			return report(cmd, info, "", fmt.Errorf("lock %s is held: %w", path, filelock.ErrAlreadyLocked))
		}

		if err := fl.Lock(); err != nil {
			return report(cmd, info, "", err)
		}

		info.Locked = true
		return report(cmd, info, fmt.Sprintf("🔒 Locked %s", path), nil)
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
}
