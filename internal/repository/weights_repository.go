package repository

import (
	"context"
	"fmt"
	"strings"

	"skill-match/internal/database"
	"skill-match/internal/domain"
	"skill-match/internal/domain/weights"

	"github.com/google/uuid"
)

type WeightsRepository interface {
	List(ctx context.Context) ([]weights.ScoringWeights, error)
	GetByID(ctx context.Context, id uuid.UUID) (weights.ScoringWeights, error)
	GetActive(ctx context.Context) (weights.ScoringWeights, error)
	// Create stores an inactive profile; profile names are unique.
	Create(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error)
	// Activate makes id the only active profile. A non-nil expected must be the active id.
	Activate(ctx context.Context, id uuid.UUID, expected *uuid.UUID) error
	// Upsert inserts or updates a profile by name, used by the seeder.
	Upsert(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error)
}

type PostgresWeightsRepository struct {
	db database.DB
}

func NewPostgresWeightsRepository(db database.DB) *PostgresWeightsRepository {
	return &PostgresWeightsRepository{db: db}
}

const weightsColumns = `id, name, skill_weight, content_weight, cluster_weight, test_weight,
	experience_weight, salary_weight, location_weight, remote_weight, employability_weight,
	required_skill_share, category_weighted, test_pass_threshold, required_test_weight,
	optional_test_weight, active, created_at`

func scanWeights(row database.Row) (weights.ScoringWeights, error) {
	var w weights.ScoringWeights
	err := row.Scan(
		&w.ID, &w.Name, &w.Skill, &w.Content, &w.Cluster, &w.Test,
		&w.Experience, &w.Salary, &w.Location, &w.Remote, &w.Employability,
		&w.RequiredSkillShare, &w.CategoryWeighted, &w.TestPassThreshold, &w.RequiredTestWeight,
		&w.OptionalTestWeight, &w.Active, &w.CreatedAt,
	)
	return w, err
}

func weightsArgs(w weights.ScoringWeights) []any {
	return []any{
		w.ID, strings.TrimSpace(w.Name), w.Skill, w.Content, w.Cluster, w.Test,
		w.Experience, w.Salary, w.Location, w.Remote, w.Employability,
		w.RequiredSkillShare, w.CategoryWeighted, w.TestPassThreshold, w.RequiredTestWeight,
		w.OptionalTestWeight,
	}
}

func (r *PostgresWeightsRepository) List(ctx context.Context) ([]weights.ScoringWeights, error) {
	rows, err := r.db.Query(ctx, `SELECT `+weightsColumns+` FROM scoring_weights ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) (weights.ScoringWeights, error) { return scanWeights(rows) })
}

func (r *PostgresWeightsRepository) GetByID(ctx context.Context, id uuid.UUID) (weights.ScoringWeights, error) {
	w, err := scanWeights(r.db.QueryRow(ctx, `SELECT `+weightsColumns+` FROM scoring_weights WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return weights.ScoringWeights{}, notFound("scoring weights", id)
		}
		return weights.ScoringWeights{}, err
	}
	return w, nil
}

func (r *PostgresWeightsRepository) GetActive(ctx context.Context) (weights.ScoringWeights, error) {
	w, err := scanWeights(r.db.QueryRow(ctx, `SELECT `+weightsColumns+` FROM scoring_weights WHERE active`))
	if err != nil {
		if isNoRows(err) {
			return weights.ScoringWeights{}, fmt.Errorf("%w: no active scoring weights", domain.ErrDataNotFound)
		}
		return weights.ScoringWeights{}, err
	}
	return w, nil
}

func (r *PostgresWeightsRepository) Create(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	out, err := scanWeights(r.db.QueryRow(ctx,
		`INSERT INTO scoring_weights (id, name, skill_weight, content_weight, cluster_weight, test_weight,
			experience_weight, salary_weight, location_weight, remote_weight, employability_weight,
			required_skill_share, category_weighted, test_pass_threshold, required_test_weight,
			optional_test_weight, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, false)
		 RETURNING `+weightsColumns,
		weightsArgs(w)...,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return weights.ScoringWeights{}, fmt.Errorf("%w: scoring weights %q already exist", domain.ErrValidation, w.Name)
		}
		return weights.ScoringWeights{}, err
	}
	return out, nil
}

func (r *PostgresWeightsRepository) Upsert(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return scanWeights(r.db.QueryRow(ctx,
		`INSERT INTO scoring_weights (id, name, skill_weight, content_weight, cluster_weight, test_weight,
			experience_weight, salary_weight, location_weight, remote_weight, employability_weight,
			required_skill_share, category_weighted, test_pass_threshold, required_test_weight,
			optional_test_weight, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, false)
		 ON CONFLICT (name) DO UPDATE SET
			skill_weight = EXCLUDED.skill_weight,
			content_weight = EXCLUDED.content_weight,
			cluster_weight = EXCLUDED.cluster_weight,
			test_weight = EXCLUDED.test_weight,
			experience_weight = EXCLUDED.experience_weight,
			salary_weight = EXCLUDED.salary_weight,
			location_weight = EXCLUDED.location_weight,
			remote_weight = EXCLUDED.remote_weight,
			employability_weight = EXCLUDED.employability_weight,
			required_skill_share = EXCLUDED.required_skill_share,
			category_weighted = EXCLUDED.category_weighted,
			test_pass_threshold = EXCLUDED.test_pass_threshold,
			required_test_weight = EXCLUDED.required_test_weight,
			optional_test_weight = EXCLUDED.optional_test_weight
		 RETURNING `+weightsColumns,
		weightsArgs(w)...,
	))
}

func (r *PostgresWeightsRepository) Activate(ctx context.Context, id uuid.UUID, expected *uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		return activate(ctx, tx, "scoring_weights", id, expected)
	})
}
