package commander

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clickpredict/internal/data"
	"clickpredict/internal/experiment"
	"clickpredict/internal/training"
)

func (c *Commander) newExperimentCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Sweep regularisation strengths and scalers without touching the model artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				c.cfg.Experiment.Output = output
			}
			scalers, err := c.cfg.ExperimentScalers()
			if err != nil {
				return err
			}

			table, err := data.NewCSVReader(c.cfg.Dataset.Path).LoadTable()
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "Running %d experiments on %s...\n",
				len(scalers)*len(c.cfg.Experiment.CValues), c.cyan(c.cfg.Dataset.Path))

			runner := experiment.NewRunner(c.logger)
			results, err := runner.RunAllExperiments(cmd.Context(), table, c.cfg.PreprocessOptions(),
				training.OptionsFromConfig(c.cfg).Model,
				experiment.Grid{CValues: c.cfg.Experiment.CValues, Scalers: scalers})
			if err != nil {
				return err
			}

			metric := c.cfg.Metric()
			ranked := experiment.Ranked(results, metric)

			fmt.Fprintln(c.out, c.blue("\nExperiment Results:"))
			fmt.Fprintln(c.out, strings.Repeat("─", 70))
			fmt.Fprintf(c.out, "%-10s %-8s %-10s %-10s %-10s %-10s %s\n",
				"Scaler", "C", "Accuracy", "Precision", "Recall", "F1", "Iters")
			fmt.Fprintln(c.out, strings.Repeat("─", 70))
			for i, r := range ranked {
				line := fmt.Sprintf("%-10s %-8g %-10.4f %-10.4f %-10.4f %-10.4f %d",
					r.Scaler, r.C, r.Accuracy, r.Precision, r.Recall, r.F1Score, r.Iterations)
				if i == 0 {
					line = c.green(line)
				} else if !r.Converged {
					line = c.yellow(line)
				}
				fmt.Fprintln(c.out, line)
			}

			if c.cfg.Experiment.Output != "" {
				if err := experiment.ExportResults(results, c.cfg.Experiment.Output); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "\nResults saved to: %s\n", c.cfg.Experiment.Output)
			}
			best := ranked[0]
			fmt.Fprintf(c.out, "Best by %s: scaler=%s c=%g (%.3f)\n", metric, best.Scaler, best.C, best.Score(metric))
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "results CSV, overrides experiment.output")
	return cmd
}
