package main

import (
	"context"
	"errors"
	"fmt"

	"skill-match/internal/app"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute stored recommendations for everyone, one candidate or one job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := batchRequest(cmd)
		if err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			report, err := c.Recommendations.Recompute(ctx, req)
			if err != nil {
				return err
			}
			c.Log.Info("recompute finished",
				zap.String("kind", string(req.Kind)),
				zap.String("run_id", report.RunID.String()),
				zap.Int("total", report.Total),
				zap.Int("succeeded", report.Succeeded),
				zap.Int("failed", report.Failed),
				zap.Int("audited", report.Audited),
				zap.Int("stale", report.Stale),
			)
			return nil
		})
	},
}

func batchRequest(cmd *cobra.Command) (usecase.BatchRequest, error) {
	candidate, _ := cmd.Flags().GetString("candidate")
	job, _ := cmd.Flags().GetString("job")

	switch {
	case candidate != "" && job != "":
		return usecase.BatchRequest{}, errors.New("--candidate and --job are mutually exclusive")
	case candidate != "":
		id, err := uuid.Parse(candidate)
		if err != nil {
			return usecase.BatchRequest{}, fmt.Errorf("invalid --candidate: %w", err)
		}
		return usecase.BatchRequest{Kind: usecase.BatchCandidate, CandidateID: id}, nil
	case job != "":
		id, err := uuid.Parse(job)
		if err != nil {
			return usecase.BatchRequest{}, fmt.Errorf("invalid --job: %w", err)
		}
		return usecase.BatchRequest{Kind: usecase.BatchJob, JobID: id}, nil
	default:
		return usecase.BatchRequest{Kind: usecase.BatchFull}, nil
	}
}

func init() {
	recomputeCmd.Flags().String("candidate", "", "recompute one candidate against every open job")
	recomputeCmd.Flags().String("job", "", "recompute one job against every candidate")

	rootCmd.AddCommand(recomputeCmd)
}
