package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinsignal/clinsignal/internal/application/cohort"
)

var (
	cohortAgeMin     int
	cohortAgeMax     int
	cohortGender     string
	cohortConditions []string
	cohortMeds       []string
	cohortText       string
)

// NewCohortCmd creates the cohort command.
func NewCohortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Identify patients matching clinical criteria",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)

			criteria := &cohort.Criteria{
				Gender:        cohortGender,
				Conditions:    cohortConditions,
				Medications:   cohortMeds,
				TextCriterion: cohortText,
			}
			if cmd.Flags().Changed("age-min") {
				criteria.AgeMin = &cohortAgeMin
			}
			if cmd.Flags().Changed("age-max") {
				criteria.AgeMax = &cohortAgeMax
			}

			svcs, err := BuildServices(cmd.Context(), cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}

			result, err := svcs.Cohort.Identify(cmd.Context(), criteria)
			if err != nil {
				return err
			}

			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "matched %d of %d patients\n", result.Matched, result.Screened)
			for _, p := range result.Patients {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %d %s  [%s]\n",
					p.ID, p.Age, p.Gender, strings.Join(p.Conditions, ", "))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&cohortAgeMin, "age-min", 0, "minimum patient age")
	f.IntVar(&cohortAgeMax, "age-max", 0, "maximum patient age")
	f.StringVar(&cohortGender, "gender", "", "patient gender")
	f.StringSliceVar(&cohortConditions, "condition", nil, "required condition (repeatable)")
	f.StringSliceVar(&cohortMeds, "medication", nil, "required medication (repeatable)")
	f.StringVar(&cohortText, "similar-to", "", "free-text criterion matched semantically against clinical notes")
	return cmd
}
