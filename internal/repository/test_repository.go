package repository

import (
	"context"

	"skill-match/internal/database"
	"skill-match/internal/domain/candidate"

	"github.com/google/uuid"
)

type TestRepository interface {
	ListTests(ctx context.Context) ([]candidate.TechnicalTest, error)
	// ListResults returns every attempt of the given candidates, grouped by candidate id.
	ListResults(ctx context.Context, candidateIDs []uuid.UUID) (map[uuid.UUID][]candidate.TestResult, error)
}

type PostgresTestRepository struct {
	db database.DB
}

func NewPostgresTestRepository(db database.DB) *PostgresTestRepository {
	return &PostgresTestRepository{db: db}
}

func (r *PostgresTestRepository) ListTests(ctx context.Context) ([]candidate.TechnicalTest, error) {
	rows, err := r.db.Query(ctx, `SELECT id, skill_id, title FROM technical_tests ORDER BY skill_id, id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) (candidate.TechnicalTest, error) {
		var t candidate.TechnicalTest
		err := rows.Scan(&t.ID, &t.SkillID, &t.Title)
		return t, err
	})
}

func (r *PostgresTestRepository) ListResults(ctx context.Context, candidateIDs []uuid.UUID) (map[uuid.UUID][]candidate.TestResult, error) {
	out := make(map[uuid.UUID][]candidate.TestResult, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, candidate_id, skill_id, score::float8, status, completed_at, created_at
		 FROM test_results
		 WHERE candidate_id = ANY($1)
		 ORDER BY candidate_id, skill_id, completed_at DESC NULLS LAST`,
		candidateIDs,
	)
	if err != nil {
		return nil, err
	}
	results, err := collect(rows, func(rows database.Rows) (candidate.TestResult, error) {
		var (
			tr     candidate.TestResult
			status string
		)
		if err := rows.Scan(&tr.ID, &tr.CandidateID, &tr.SkillID, &tr.Score, &status, &tr.CompletedAt, &tr.CreatedAt); err != nil {
			return candidate.TestResult{}, err
		}
		tr.Status = candidate.TestStatus(status)
		return tr, nil
	})
	if err != nil {
		return nil, err
	}
	for _, tr := range results {
		out[tr.CandidateID] = append(out[tr.CandidateID], tr)
	}
	return out, nil
}
