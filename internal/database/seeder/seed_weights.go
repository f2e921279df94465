package seeder

import (
	"context"
	"errors"

	"skill-match/internal/database"
	"skill-match/internal/domain"
	"skill-match/internal/domain/weights"
	"skill-match/internal/repository"
)

type WeightsSeeder struct{}

func (WeightsSeeder) Name() string { return "scoring_weights" }

// Run upserts the built-in profiles and activates balanced only when nothing is active yet,
// so an operator's choice survives reseeding.
func (WeightsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := RequireColumns(ctx, db, "scoring_weights", "id", "name", "skill_weight", "employability_weight", "active"); err != nil {
		return err
	}

	repo := repository.NewPostgresWeightsRepository(db)
	var balanced weights.ScoringWeights
	for _, w := range []weights.ScoringWeights{weights.Balanced(), weights.SkillsFirst()} {
		saved, err := repo.Upsert(ctx, w)
		if err != nil {
			return err
		}
		if saved.Name == weights.Balanced().Name {
			balanced = saved
		}
	}

	if _, err := repo.GetActive(ctx); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrDataNotFound) {
		return err
	}
	return repo.Activate(ctx, balanced.ID, nil)
}
