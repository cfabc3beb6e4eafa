package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinsignal/clinsignal/internal/application/search"
	"github.com/clinsignal/clinsignal/pkg/errors"
)

var (
	searchLimit     int
	searchThreshold float64
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank reference cases by similarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)

			input := &search.SearchInput{Query: args[0], Limit: searchLimit}
			if cmd.Flags().Changed("threshold") {
				if searchThreshold < -1.0 || searchThreshold > 1.0 {
					return errors.InvalidInput("search",
						fmt.Sprintf("threshold must be within [-1, 1], got %.2f", searchThreshold))
				}
				input.Threshold = &searchThreshold
			}

			svcs, err := BuildServices(cmd.Context(), cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}

			result, err := svcs.Search.SearchCases(cmd.Context(), input)
			if err != nil {
				return err
			}

			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, result)
			}
			for _, m := range result.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %.4f  %s\n", m.Rank, m.Score, m.Summary)
			}
			if len(result.Results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no cases above threshold %.2f\n", result.Threshold)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results (0 = configured default)")
	cmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum similarity score (unset = configured default)")
	return cmd
}
