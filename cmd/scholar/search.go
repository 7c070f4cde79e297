package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scholar/internal/di"
	"scholar/internal/domain/research"
	"scholar/internal/shared/textutil"
)

func (cli *CLI) newSearchCommand() *cobra.Command {
	var (
		provider   string
		maxResults int
		category   string
		sortBy     string
		academic   bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query a search provider through the gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.BuildContainer(cli.cfg)
			if err != nil {
				return err
			}
			defer container.Cleanup(cmd.Context())

			query := strings.Join(args, " ")
			results, err := container.Search.Search(cmd.Context(), provider, query, maxResults, research.SearchFilters{
				Category: category,
				SortBy:   sortBy,
				Academic: academic,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No results found for: %s\n", query)
				return nil
			}
			for i, r := range results {
				marker := ""
				if r.IsDocument {
					marker = green(" [PDF]")
				}
				fmt.Fprintf(out, "%d. %s%s\n", i+1, bold(r.Title), marker)
				fmt.Fprintf(out, "   %s\n", cyan(r.URL))
				if r.Snippet != "" {
					fmt.Fprintf(out, "   %s\n", gray(textutil.Ellipsize(r.Snippet, 200)))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "tavily, arxiv or duckduckgo (default from config)")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 10, "Maximum results")
	cmd.Flags().StringVar(&category, "category", "", "arXiv category, e.g. cs.CL")
	cmd.Flags().StringVar(&sortBy, "sort", "", "arXiv ordering: relevance or date")
	cmd.Flags().BoolVar(&academic, "academic", true, "Bias web providers toward academic sources")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
