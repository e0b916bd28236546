package commander

import (
	"fmt"

	"github.com/spf13/cobra"

	"clickpredict/internal/persistence"
)

func (c *Commander) newImportancesCmd() *cobra.Command {
	var (
		n         int
		direction string
	)

	cmd := &cobra.Command{
		Use:   "importances",
		Short: "Show the most or least influential features of the trained model",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := persistence.ParseDirection(direction)
			if err != nil {
				return err
			}
			rows, err := persistence.LoadImportances(c.cfg.Artifacts.Importances, n, dir)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.out, c.blue(fmt.Sprintf("\nTop %d %s important features:", len(rows), dir)))
			c.rule("─")
			c.printImportances(rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "top", "n", 5, "number of features to show")
	cmd.Flags().StringVar(&direction, "direction", "most", "most or least")
	return cmd
}

func (c *Commander) newRunsCmd() *cobra.Command {
	var (
		limit  int
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Artifacts.RunsDB == "" {
				return fmt.Errorf("run history is disabled: set artifacts.runs_db in %s", c.configPath)
			}
			store, err := persistence.OpenRunStore(c.cfg.Artifacts.RunsDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if latest {
				run, err := store.Latest(cmd.Context())
				if err != nil {
					return err
				}
				c.printRun(run)
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.out, "No training runs recorded yet")
				return nil
			}

			fmt.Fprintln(c.out, c.blue("\nTraining Runs:"))
			c.rule("─")
			fmt.Fprintf(c.out, "%-10s %-17s %-10s %-8s %-6s %s\n", "ID", "Created", "Metric", "Score", "Iters", "Status")
			c.rule("─")
			for _, run := range runs {
				status := c.green("converged")
				if !run.Converged {
					status = c.yellow("budget hit")
				}
				score := "-"
				if run.Evaluated {
					score = fmt.Sprintf("%.3f", run.Score)
				}
				fmt.Fprintf(c.out, "%-10s %-17s %-10s %-8s %-6d %s\n",
					shortID(run.ID), run.CreatedAt.Format("2006-01-02 15:04"), run.Metric, score, run.Iterations, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum runs to list")
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the most recent run in detail")
	return cmd
}

func (c *Commander) printRun(run *persistence.TrainingRun) {
	fmt.Fprintln(c.out, c.blue("\nLatest Training Run:"))
	c.rule("─")
	fmt.Fprintf(c.out, "ID:          %s\n", run.ID)
	fmt.Fprintf(c.out, "Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.out, "Dataset:     %s\n", run.Dataset)
	fmt.Fprintf(c.out, "Rows:        %d train / %d test\n", run.TrainRows, run.TestRows)
	fmt.Fprintf(c.out, "Iterations:  %d\n", run.Iterations)
	if run.Evaluated {
		fmt.Fprintf(c.out, "%-12s %.3f\n", run.Metric+":", run.Score)
	}
	if !run.Converged {
		fmt.Fprintln(c.out, c.yellow("⚠ iteration budget was exhausted"))
	}
	fmt.Fprintf(c.out, "Model:       %s\n", run.ModelPath)
}

func shortID(id string) string {
	return id[:min(len(id), 8)]
}
