package repository

import (
	"context"

	"skill-match/internal/database"

	"github.com/google/uuid"
)

// DismissalRepository is the exclusion provider: jobs a candidate dismissed are never recommended.
type DismissalRepository interface {
	DismissedJobs(ctx context.Context, candidateID uuid.UUID) (map[uuid.UUID]struct{}, error)
	DismissedCandidates(ctx context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type PostgresDismissalRepository struct {
	db database.DB
}

func NewPostgresDismissalRepository(db database.DB) *PostgresDismissalRepository {
	return &PostgresDismissalRepository{db: db}
}

func (r *PostgresDismissalRepository) DismissedJobs(ctx context.Context, candidateID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return r.idSet(ctx, `SELECT job_id FROM recommendation_dismissals WHERE candidate_id = $1`, candidateID)
}

func (r *PostgresDismissalRepository) DismissedCandidates(ctx context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	return r.idSet(ctx, `SELECT candidate_id FROM recommendation_dismissals WHERE job_id = $1`, jobID)
}

func (r *PostgresDismissalRepository) idSet(ctx context.Context, query string, id uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var v uuid.UUID
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
