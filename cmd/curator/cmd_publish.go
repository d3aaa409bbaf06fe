package main

import (
	"alcyxob/exercise-curator/internal/repository/mongo"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPublishCmd(a *app) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Push the dataset into the MongoDB exercise catalog",
		Long: `Replace one catalog document per record, keyed by the exercise id.
With --prune, documents whose id no longer exists in the dataset are deleted.
Publishing is refused while duplicate ids exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			svc, err := a.curator()
			if err != nil {
				return err
			}
			ds, report, err := svc.Inspect(ctx)
			if err != nil {
				return err
			}

			dbClient, err := mongo.ConnectDB(ctx, a.cfg.Database.URI)
			if err != nil {
				return fmt.Errorf("connect to MongoDB: %w", err)
			}
			defer func() {
				if err := mongo.DisconnectDB(dbClient); err != nil {
					a.logger.Error("failed to disconnect MongoDB", zap.Error(err))
				}
			}()
			appDB := dbClient.Database(a.cfg.Database.Name)

			indexCtx, cancel := context.WithTimeout(ctx, 1*time.Minute)
			defer cancel()
			if err := mongo.EnsureExerciseIndexes(indexCtx, appDB.Collection(a.cfg.Database.Collection)); err != nil {
				a.logger.Warn("failed to ensure exercise indexes", zap.Error(err))
			}

			catalog := mongo.NewMongoExerciseCatalog(appDB, a.cfg.Database.Collection, a.logger)
			stats, err := catalog.Publish(ctx, ds, prune)
			if err != nil {
				return err
			}
			total, err := catalog.Count(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "publish: upserted %d, modified %d, deleted %d, skipped %d (catalog now %d documents)\n",
				stats.Upserted, stats.Modified, stats.Deleted, stats.Skipped, total)
			printReportSummary(w, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "delete catalog documents missing from the dataset")
	return cmd
}
