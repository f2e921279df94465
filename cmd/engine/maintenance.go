package main

import (
	"context"

	"skill-match/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			if err := c.Migrate(ctx); err != nil {
				return err
			}
			c.Log.Info("migrations up to date")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the skill catalog and the built-in scoring weight profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			return c.Seed(ctx)
		})
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the candidate/job cluster model when it is stale",
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			res, err := c.Clusters.Retrain(ctx, force)
			if err != nil {
				return err
			}
			if res.Skipped {
				c.Log.Info("training skipped", zap.String("reason", res.Reason))
				return nil
			}
			c.Log.Info("cluster model trained",
				zap.String("model_id", res.Model.ID.String()),
				zap.Int("k", res.Model.K),
				zap.Float64("silhouette", res.Model.Silhouette),
			)
			return nil
		})
	},
}

var refitCmd = &cobra.Command{
	Use:   "refit-vocabulary",
	Short: "Refit the TF-IDF vocabulary over the active job corpus",
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			res, err := c.Vocabulary.Refit(ctx, force)
			if err != nil {
				return err
			}
			c.Log.Info("vocabulary refit",
				zap.Int("version", res.Version),
				zap.Int("terms", res.Terms),
				zap.Int("documents", res.Documents),
				zap.Bool("skipped", res.Skipped),
			)
			return nil
		})
	},
}

func init() {
	trainCmd.Flags().BoolP("force", "f", false, "train even when the active model is fresh")
	refitCmd.Flags().BoolP("force", "f", false, "refit even when the corpus is unchanged")

	rootCmd.AddCommand(migrateCmd, seedCmd, trainCmd, refitCmd)
}
