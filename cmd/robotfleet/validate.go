package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"robotfleet/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config.yaml>",
	Short: "Validate a configuration file against the CUE schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateWithCue(args[0], schemaPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
		return nil
	},
}
