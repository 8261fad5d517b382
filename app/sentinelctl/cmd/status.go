package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <name|path>",
	Short: "Show whether the lock is held",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLock(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := JsonLockInfo{Lock: args[0], Path: path, Action: "status"}

		fl, err := newFileLock(path)
		if err != nil {
			return report(cmd, info, "", err)
		}
		// observing only
		defer fl.Detach()

		info.Locked = fl.Locked()
		text := fmt.Sprintf("🟢 %s is free", path)
		if info.Locked {
			text = fmt.Sprintf("🔒 %s is locked", path)
		}
		return report(cmd, info, text, nil)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
