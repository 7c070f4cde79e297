package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scholar/internal/infra/session"
	"scholar/internal/shared/logging"
)

func (cli *CLI) store() *session.Store {
	return session.New(cli.cfg.BaseDir, session.WithLogger(logging.NewComponentLogger("Sessions")))
}

func (cli *CLI) newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Browse research sessions",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := cli.store().List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintf(out, "No sessions in %s\n", cli.cfg.BaseDir)
				return nil
			}
			for _, s := range summaries {
				topic := ""
				if s.Metadata != nil {
					topic, _ = s.Metadata["topic"].(string)
				}
				if !s.Valid() {
					topic = yellow(s.Problem)
				}
				report := ""
				if s.HasReport {
					report = cyan(" [report]")
				}
				fmt.Fprintf(out, "%s  %-9s %s%s\n", bold(s.ID), statusText(s.Status()), topic, report)
				fmt.Fprintf(out, "    %s\n", gray(fmt.Sprintf("%d pdfs, %d notes", len(s.PDFs), s.NoteCount)))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print summaries as JSON")

	var reportOnly bool
	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's records and report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cli.store()
			h, err := store.Open(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report, reportErr := store.ReadReport(h)
			if reportOnly {
				if reportErr != nil {
					return reportErr
				}
				fmt.Fprint(out, report)
				return nil
			}

			var metadata, completion map[string]any
			if _, err := store.ReadMetadata(h, &metadata); err != nil {
				return err
			}
			if _, err := store.ReadCompletion(h, &completion); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", bold("Session:"), h.ID)
			fmt.Fprintf(out, "%s %s\n", bold("Path:"), h.Root)
			if metadata != nil {
				fmt.Fprintln(out, bold("Metadata:"))
				if err := printJSON(out, metadata); err != nil {
					return err
				}
			}
			if completion != nil {
				fmt.Fprintln(out, bold("Completion:"))
				if err := printJSON(out, completion); err != nil {
					return err
				}
			}
			if reportErr == nil {
				fmt.Fprintln(out, bold("Report:"))
				fmt.Fprintln(out, indent(report, "  "))
			}
			return nil
		},
	}
	show.Flags().BoolVar(&reportOnly, "report", false, "Print only the markdown report")

	cmd.AddCommand(list, show)
	return cmd
}
