package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/clinsignal/clinsignal/internal/intelligence/noteprep"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize clinical note text",
		Long:  "Normalize a clinical note: lowercase, whitespace collapse, PHI masking,\nabbreviation expansion and unit separation.  Reads from the file argument\nor stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			normalizer := noteprep.NewNormalizer(cliCtx.Config.Pipeline.Normalizer)
			return printResult(cmd, cliCtx.Output, normalizer.Normalize(text))
		},
	}
}

// NewSectionsCmd creates the sections command.
func NewSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections [file]",
		Short: "Extract named sections from a clinical note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			sections := noteprep.NewSectionExtractor().Extract(text)
			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, sections)
			}

			names := make([]string, 0, len(sections))
			for name := range sections {
				names = append(names, string(name))
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n  %s\n", name, sections[clinical.SectionName(name)])
			}
			return nil
		},
	}
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract clinical entities from note text",
		Long:  "Extract entity spans (medications, conditions, procedures, lab values)\nusing the span-tagging oracle merged with the rule table.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			svcs, err := BuildServices(cmd.Context(), cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}

			spans, err := svcs.Notes.ExtractEntities(cmd.Context(), text)
			if err != nil {
				return err
			}

			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, spans)
			}
			for _, s := range spans {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %4d-%-4d %.2f  %s\n", s.Label, s.Start, s.End, s.Confidence, s.Text)
			}
			return nil
		},
	}
}
