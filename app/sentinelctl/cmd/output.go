package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// JsonLockInfo is the --json output of every lock command.
type JsonLockInfo struct {
	Lock      string `json:"lock"`
	Path      string `json:"path"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Locked    bool   `json:"locked"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// report prints the outcome of a command either as JSON or as a human
// readable line and passes err through. An empty text prints nothing. In JSON
// mode the error is printed as part of the document, so the returned error
// is silent.
func report(cmd *cobra.Command, info JsonLockInfo, text string, err error) error {
	info.Timestamp = time.Now().UTC().Format(time.RFC3339)
	info.Status = "success"
	if err != nil {
		info.Status = "error"
		info.Message = err.Error()
	}

	if !jsonFlag {
		if err == nil && text != "" {
			fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		return err
	}

	out, mErr := json.MarshalIndent(info, "", "  ")
	if mErr != nil {
		return fmt.Errorf("error generating JSON output: %w", mErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if err != nil {
		return &exitError{code: exitCode(err)}
	}
	return nil
}
