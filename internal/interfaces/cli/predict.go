package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinsignal/clinsignal/internal/application/risk"
)

// NewPredictCmd creates the predict command group.
func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Readmission risk scoring",
	}
	cmd.AddCommand(newPredictReadmissionCmd(), newPredictTrajectoryCmd())
	return cmd
}

func newPredictReadmissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readmission [file]",
		Short: "Score readmission risk for one note",
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

			assessment, err := svcs.Risk.PredictReadmission(cmd.Context(), text)
			if err != nil {
				return err
			}

			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, assessment)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "risk: %.3f (%s)\n", assessment.Risk, assessment.Category)
			return nil
		},
	}
}

func newPredictTrajectoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trajectory <file>...",
		Short: "Score an ordered note sequence and derive the risk trend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)

			notes := make([]string, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading note file: %w", err)
				}
				notes = append(notes, string(data))
			}

			svcs, err := BuildServices(cmd.Context(), cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}

			traj, err := svcs.Risk.Trajectory(cmd.Context(), &risk.TrajectoryInput{Notes: notes})
			if err != nil {
				return err
			}

			if cliCtx.Output == "json" {
				return printResult(cmd, cliCtx.Output, traj)
			}
			for i, p := range traj.Points {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %.3f (%s)\n", i+1, p.Risk, p.Category)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trend: %s  current: %.3f  max: %.3f  min: %.3f\n",
				traj.Trend, traj.Current, traj.Max, traj.Min)
			return nil
		},
	}
}
