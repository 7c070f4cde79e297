package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scholar/internal/shared/config"
	"scholar/internal/shared/logging"
)

// CLI holds state shared by all subcommands.
type CLI struct {
	configFile string
	baseDir    string
	logLevel   string
	noColor    bool

	cfg        config.Config
	flushFn    func() error
	env        func(string) (string, bool)
	searchDirs []string
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&CLI{env: os.LookupEnv})
}

func newRootCommand(cli *CLI) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scholar",
		Short: "Session-scoped research artifact pipeline",
		Long: fmt.Sprintf(`%s

scholar executes the tool calls of an autonomous research run: academic
search, PDF download and extraction, notes and the final report. Every
artifact lands in one session directory.

%s
  scholar prompt --topic "sparse attention"          # Brief for the reasoning engine
  scholar run --topic "sparse attention" -t run.jsonl
  scholar sessions list
  scholar search "mixture of experts" --provider arxiv`,
			bold("scholar"),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cli.flushFn == nil {
				return nil
			}
			// Sync on a console fd returns EINVAL on some platforms.
			_ = cli.flushFn()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cli.configFile, "config", "c", "", "Path to scholar.yaml")
	rootCmd.PersistentFlags().StringVar(&cli.baseDir, "base-dir", "", "Directory holding research sessions")
	rootCmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&cli.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		cli.newRunCommand(),
		cli.newPromptCommand(),
		cli.newSessionsCommand(),
		cli.newSearchCommand(),
		cli.newToolsCommand(),
		cli.newConfigCommand(),
	)
	return rootCmd
}

func (cli *CLI) initialize() error {
	if cli.noColor {
		disableColor()
	}

	opts := []config.Option{config.WithFile(cli.configFile), config.WithEnvLookup(cli.env)}
	if cli.searchDirs != nil {
		opts = append(opts, config.WithSearchDirs(cli.searchDirs...))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cli.baseDir) != "" {
		cfg.BaseDir = cli.baseDir
	}
	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}
	cli.cfg = cfg

	flush, err := logging.Configure(logging.Config{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cfg.Log.Console,
		JSON:    cfg.Log.JSON,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	cli.flushFn = flush
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := jsonIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
