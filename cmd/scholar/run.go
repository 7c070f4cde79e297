package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"scholar/internal/app/dispatch"
	"scholar/internal/di"
	"scholar/internal/domain/research"
)

const cleanupTimeout = 5 * time.Second

func (cli *CLI) newRunCommand() *cobra.Command {
	var (
		req         requestFlags
		transcript  string
		resultsPath string
		quiet       bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create a session and execute a transcript of tool calls",
		Long: `Create a session for the research request and dispatch every tool call
read from a JSONL transcript (one event per line, "-" for stdin) until the
terminal result event arrives. Tool results can be written back as JSONL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			input, closeInput, err := openInput(cmd.InOrStdin(), transcript)
			if err != nil {
				return err
			}
			defer closeInput()

			out := cmd.OutOrStdout()
			var opts []di.Option
			if !quiet && !asJSON {
				printer := &progressPrinter{out: out}
				opts = append(opts, di.WithObserver(printer.observe))
			}
			if resultsPath != "" {
				f, err := os.Create(resultsPath)
				if err != nil {
					return fmt.Errorf("open results file: %w", err)
				}
				defer f.Close()
				opts = append(opts, di.WithResultSink(dispatch.NewJSONLSink(f)))
			}

			container, err := di.BuildContainer(cli.cfg, opts...)
			if err != nil {
				return err
			}
			defer func() {
				cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
				defer cancel()
				if err := container.Cleanup(cleanupCtx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), errorText("Cleanup error: "+err.Error()))
				}
			}()
			if cli.cfg.Metrics.Enabled {
				if err := container.Metrics.StartPrometheusServer(cli.cfg.Metrics.Listen); err != nil {
					return err
				}
			}

			outcome, runErr := container.Pipeline.Start(ctx, req.request(), dispatch.NewTranscriptStream(input))
			if outcome.SessionID == "" {
				return runErr
			}
			if asJSON {
				if err := printJSON(out, outcome); err != nil {
					return err
				}
			} else {
				printOutcome(out, outcome)
			}
			return runErr
		},
	}

	req.bind(cmd)
	cmd.Flags().StringVarP(&transcript, "transcript", "t", "-", "JSONL event transcript, - for stdin")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Write tool results as JSONL to this file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if isTerminal(stdin) {
			return nil, nil, errors.New("no transcript: pipe JSONL events on stdin or pass --transcript")
		}
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open transcript: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func (cli *CLI) newPromptCommand() *cobra.Command {
	var (
		req    requestFlags
		system bool
	)
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the research brief for the reasoning engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := req.request()
			if err := r.Normalize(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if system {
				fmt.Fprint(out, research.SystemPrompt)
			}
			fmt.Fprint(out, r.Prompt())
			return nil
		},
	}
	req.bind(cmd)
	cmd.Flags().BoolVar(&system, "system", false, "Also print the system prompt")
	return cmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
