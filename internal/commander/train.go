package commander

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"clickpredict/internal/persistence"
	"clickpredict/internal/training"
)

func (c *Commander) newTrainCmd() *cobra.Command {
	var (
		dataset  string
		maxIter  int
		metric   string
		evaluate bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and write the model and importance artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("dataset") {
				c.cfg.Dataset.Path = dataset
			}
			if flags.Changed("max-iter") {
				c.cfg.Training.MaxIter = maxIter
			}
			if flags.Changed("metric") {
				c.cfg.Training.Metric = metric
			}
			if flags.Changed("evaluate") {
				c.cfg.Training.Evaluate = evaluate
			}

			fmt.Fprintf(c.out, "Training on %s...\n", c.cyan(c.cfg.Dataset.Path))
			start := time.Now()
			result, err := training.Run(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			c.printTrainingResult(result, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset CSV, overrides dataset.path")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration budget, overrides training.max_iter")
	cmd.Flags().StringVar(&metric, "metric", "", "accuracy, precision or recall")
	cmd.Flags().BoolVar(&evaluate, "evaluate", true, "score the held-out partition")
	return cmd
}

func (c *Commander) printTrainingResult(result *training.Result, elapsed time.Duration) {
	fmt.Fprintln(c.out)
	c.rule("═")
	fmt.Fprintln(c.out, c.green("Training complete"))
	c.rule("─")

	meta := result.Bundle.Metadata
	fmt.Fprintf(c.out, "Train/test rows: %d / %d\n", meta.TrainSize, meta.TestSize)
	fmt.Fprintf(c.out, "Iterations:      %d\n", meta.Iterations)
	fmt.Fprintf(c.out, "Elapsed:         %s\n", elapsed.Round(time.Millisecond))
	if result.Warning != nil {
		fmt.Fprintf(c.out, "%s %v\n", c.yellow("⚠"), result.Warning)
	}
	if result.Evaluated {
		fmt.Fprintf(c.out, "%s: %s\n", result.Metric.Title(), c.cyan(fmt.Sprintf("%.3f", result.Score)))
	}

	c.rule("─")
	fmt.Fprintln(c.out, c.blue("Most important features:"))
	top := result.Importances
	if len(top) > 5 {
		top = top[:5]
	}
	c.printImportances(top)
	c.rule("═")

	if result.Run != nil {
		fmt.Fprintf(c.out, "Run %s recorded\n", result.Run.ID)
	}
}

func (c *Commander) printImportances(rows []persistence.Importance) {
	for i, row := range rows {
		sign := c.green("+")
		if row.Weight < 0 {
			sign = c.red("-")
		}
		fmt.Fprintf(c.out, "  %d. %-20s %s %.4f\n", i+1, row.Feature, sign, math.Abs(row.Weight))
	}
}
