package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scholar/internal/app/dispatch"
)

func (cli *CLI) newToolsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Describe the tools exposed to the reasoning engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := dispatch.Catalog()
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, catalog)
			}
			for _, def := range catalog {
				fmt.Fprintf(out, "%s\n  %s\n", bold(def.Name), def.Description)
				for _, name := range def.Parameters.Required {
					fmt.Fprintf(out, "  %s %s\n", yellow("required:"), name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print definitions as JSON")
	return cmd
}
