package main

import (
	"alcyxob/exercise-curator/internal/config"
	"alcyxob/exercise-curator/internal/logging"
	"alcyxob/exercise-curator/internal/repository/file"
	"alcyxob/exercise-curator/internal/schema"
	"alcyxob/exercise-curator/internal/service"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the persistent flags have been
// parsed.
type app struct {
	configFile string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "curator",
		Short: "Maintain the exercise dataset",
		Long: `curator validates, deduplicates, patches and cross-references the
exercise dataset against the media directory. Each subcommand performs one
load, transform, validate and save cycle and only writes the dataset when it
changed something.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./config.yaml when present)")
	pf.String("dataset", "", "path of the dataset file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "emit JSON logs")

	root.AddCommand(
		newValidateCmd(a),
		newDedupCmd(a),
		newAddCmd(a),
		newPatchCmd(a),
		newApplyCmd(a),
		newResolveCmd(a),
		newAnalyzeCmd(a),
		newCheckCmd(a),
		newPublishCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(".", a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("configuration loaded",
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("media_source", cfg.Media.Source))
	return nil
}

// curator builds the pipeline over the configured dataset file.
func (a *app) curator() (service.CuratorService, error) {
	rs, err := schema.New(schema.Options{
		Mechanics:      a.cfg.Schema.Mechanics,
		EquipmentTiers: a.cfg.Schema.EquipmentTiers,
	})
	if err != nil {
		return nil, fmt.Errorf("build record schema: %w", err)
	}
	store := file.NewFileDatasetStore(a.cfg.Dataset.Path)
	return service.NewCuratorService(store, service.NewValidator(rs), a.logger), nil
}

// run executes op through the pipeline and prints its summary.
func (a *app) run(cmd *cobra.Command, op service.Operation, opts service.RunOptions) (*service.Outcome, error) {
	svc, err := a.curator()
	if err != nil {
		return nil, err
	}
	out, err := svc.Run(cmdContext(cmd), op, opts)
	if errors.Is(err, service.ErrDroppedValues) {
		return nil, fmt.Errorf("%w; fix the records or rerun with --drop-duplicate-keys", err)
	}
	if err != nil {
		return nil, err
	}
	printOutcome(cmd.OutOrStdout(), op.Name, out, opts.DryRun)
	return out, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
