package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scholar/internal/shared/config"
)

func (cli *CLI) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example scholar.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "scholar.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Wrote"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.MarshalYAML(cli.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := cli.cfg.Validate()
			out := cmd.OutOrStdout()
			for _, issue := range report.Errors {
				fmt.Fprintf(out, "%s %s: %s\n", red("error:"), issue.Key, issue.Message)
			}
			for _, issue := range report.Warnings {
				fmt.Fprintf(out, "%s %s: %s\n", yellow("warning:"), issue.Key, issue.Message)
			}
			if report.HasErrors() {
				return errors.New("configuration is invalid")
			}
			fmt.Fprintln(out, green("Configuration OK"))
			return nil
		},
	}

	cmd.AddCommand(initCmd, show, validate)
	return cmd
}
