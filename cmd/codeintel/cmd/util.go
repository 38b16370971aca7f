package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var errDoctorFailed = errors.New("preflight checks failed")

// printJSON writes v to cmd's output stream as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
