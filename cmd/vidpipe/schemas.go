package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/vidpipe/schema"
)

func newSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "Print the built-in node schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(schema.BuiltinYAML())
			return err
		},
	}
}
