package commander

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clickpredict/internal/config"
	"clickpredict/internal/inference"
	"clickpredict/internal/logging"
	"clickpredict/internal/persistence"
)

const DefaultConfigPath = "config/config.yaml"

type Commander struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	out        io.Writer

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	blue   func(a ...any) string
}

func NewCommander() *Commander {
	return &Commander{
		configPath: DefaultConfigPath,
		out:        os.Stdout,
		logger:     zap.NewNop(),
		green:      color.New(color.FgGreen).SprintFunc(),
		red:        color.New(color.FgRed).SprintFunc(),
		yellow:     color.New(color.FgYellow).SprintFunc(),
		cyan:       color.New(color.FgCyan).SprintFunc(),
		blue:       color.New(color.FgBlue).SprintFunc(),
	}
}

func (c *Commander) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clickpredict",
		Short:         "Predict which bank customers respond to a marketing offer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.out = cmd.OutOrStdout()
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			logger, err := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", DefaultConfigPath, "path to the YAML config file")

	root.AddCommand(
		c.newTrainCmd(),
		c.newPredictCmd(),
		c.newImportancesCmd(),
		c.newRunsCmd(),
		c.newExperimentCmd(),
		c.newServeCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args and prints failures in red.
func Execute() error {
	return ExecuteArgs(os.Args[1:])
}

func ExecuteArgs(args []string) error {
	c := NewCommander()
	root := c.NewRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", c.red("✗"), c.describe(err))
		return err
	}
	return nil
}

func (c *Commander) describe(err error) string {
	switch {
	case errors.Is(err, persistence.ErrModelNotFound):
		return "No trained model found. Run 'clickpredict train' first: " + err.Error()
	case errors.Is(err, persistence.ErrCorruptArtifact):
		return "Model artifacts are unreadable, retrain to replace them: " + err.Error()
	default:
		return err.Error()
	}
}

func (c *Commander) loadService() (*inference.Service, error) {
	return inference.Load(c.cfg.Artifacts.Model, inference.Options{CacheSize: c.cfg.Server.CacheSize})
}

func (c *Commander) rule(ch string) {
	fmt.Fprintln(c.out, strings.Repeat(ch, 50))
}
