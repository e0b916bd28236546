package commander

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clickpredict/internal/inference"
	"clickpredict/internal/profile"
)

var classNames = [2]string{"Not interested", "Interested"}

func (c *Commander) newPredictCmd() *cobra.Command {
	p := profile.Profile{Gender: profile.GenderFemale}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict whether one customer responds to the offer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := p.Validate(); err != nil {
				return err
			}

			service, err := c.loadService()
			if err != nil {
				return err
			}

			vector := p.Vector()
			pred, err := service.Predict(cmd.Context(), vector)
			if err != nil {
				return err
			}
			c.printPrediction(vector, pred)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&p.Gender, "gender", profile.GenderFemale, "male or female")
	flags.IntVar(&p.Age, "age", 30, "age in years")
	flags.IntVar(&p.Children, "children", 0, "number of children")
	flags.IntVar(&p.Dependants, "dependants", 0, "number of dependants")
	flags.BoolVar(&p.Employed, "employed", true, "currently employed")
	flags.BoolVar(&p.Retired, "retired", false, "receiving a pension")
	flags.Float64Var(&p.PersonalIncome, "income", 0, "monthly personal income")
	flags.IntVar(&p.Loans, "loans", 0, "loans taken in total")
	flags.IntVar(&p.ClosedLoans, "closed-loans", 0, "loans already repaid")
	return cmd
}

func (c *Commander) printPrediction(vector inference.FeatureVector, pred inference.Prediction) {
	fmt.Fprintln(c.out)
	c.rule("═")
	fmt.Fprintln(c.out, c.green("Prediction Results:"))
	c.rule("─")

	fmt.Fprintln(c.out, "Input values:")
	for i, name := range vector.Names {
		fmt.Fprintf(c.out, "  %s: %s\n", name, vector.Values[i].String())
	}
	c.rule("─")

	fmt.Fprintf(c.out, "Predicted Class: %s\n", c.cyan(classNames[pred.Label]))
	fmt.Fprintln(c.out, "\nConfidence Scores:")
	for label, p := range pred.Probabilities {
		barLength := int(p * 30)
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 30-barLength)

		paint := c.yellow
		if label == pred.Label {
			paint = c.green
		}
		fmt.Fprintf(c.out, "  %s: %s %.2f%%\n", paint(fmt.Sprintf("%-15s", classNames[label])), bar, p*100)
	}
	c.rule("═")

	confidence := pred.Confidence()
	switch {
	case confidence > 0.9:
		fmt.Fprintf(c.out, "Confidence Level: %s (%.2f%%)\n", c.green("Very High"), confidence*100)
	case confidence > 0.7:
		fmt.Fprintf(c.out, "Confidence Level: %s (%.2f%%)\n", c.green("High"), confidence*100)
	case confidence > 0.5:
		fmt.Fprintf(c.out, "Confidence Level: %s (%.2f%%)\n", c.yellow("Moderate"), confidence*100)
	default:
		fmt.Fprintf(c.out, "Confidence Level: %s (%.2f%%)\n", c.red("Low"), confidence*100)
	}
}
