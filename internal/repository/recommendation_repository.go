package repository

import (
	"context"
	"fmt"
	"time"

	"skill-match/internal/database"
	"skill-match/internal/domain/recommendation"

	"github.com/google/uuid"
)

// DecideFunc sees the stored row (nil when the pair is new) and returns the audit to write, if any.
type DecideFunc func(prev *recommendation.Recommendation) *recommendation.Audit

type ListFilter struct {
	Limit    int
	MinScore float64
	Now      time.Time
}

// Listing is a stored recommendation joined with the job fields a client displays.
type Listing struct {
	recommendation.Recommendation
	JobTitle string
	Company  string
	PostedAt time.Time
}

type RecommendationRepository interface {
	Get(ctx context.Context, candidateID, jobID uuid.UUID) (recommendation.Recommendation, error)
	// Save upserts rec under a per-pair lock. Computations older than the stored one are dropped.
	Save(ctx context.Context, rec recommendation.Recommendation, decide DecideFunc) (recommendation.SaveOutcome, error)
	// ListForCandidate returns stored rows for still-eligible, non-dismissed jobs, best first.
	ListForCandidate(ctx context.Context, candidateID uuid.UUID, f ListFilter) ([]Listing, error)
	ListForJob(ctx context.Context, jobID uuid.UUID, f ListFilter) ([]Listing, error)
	ListAudits(ctx context.Context, candidateID, jobID uuid.UUID) ([]recommendation.Audit, error)
}

type PostgresRecommendationRepository struct {
	db database.DB
}

func NewPostgresRecommendationRepository(db database.DB) *PostgresRecommendationRepository {
	return &PostgresRecommendationRepository{db: db}
}

const recommendationColumns = `r.id, r.candidate_id, r.job_id, r.overall_score,
	r.skill_match, r.content_score, r.cluster_fit_score, r.technical_test_score, r.experience_score,
	r.salary_score, r.location_score, r.remote_bonus, r.employability_score,
	r.breakdown, COALESCE(r.weights_id, '00000000-0000-0000-0000-000000000000'::uuid), r.cluster_model_id,
	r.vocabulary_version, r.algorithm_version, r.computed_at, r.created_at, r.updated_at`

func recommendationDest(rec *recommendation.Recommendation, vocabVersion *int32) []any {
	return []any{
		&rec.ID, &rec.CandidateID, &rec.JobID, &rec.OverallScore,
		&rec.Scores.SkillMatch, &rec.Scores.Content, &rec.Scores.ClusterFit, &rec.Scores.TechnicalTest, &rec.Scores.Experience,
		&rec.Scores.Salary, &rec.Scores.Location, &rec.Scores.RemoteBonus, &rec.Scores.Employability,
		&rec.Breakdown, &rec.WeightsID, &rec.ClusterModelID,
		vocabVersion, &rec.AlgorithmVersion, &rec.ComputedAt, &rec.CreatedAt, &rec.UpdatedAt,
	}
}

func scanRecommendation(row database.Row) (recommendation.Recommendation, error) {
	var (
		rec   recommendation.Recommendation
		vocab int32
	)
	if err := row.Scan(recommendationDest(&rec, &vocab)...); err != nil {
		return recommendation.Recommendation{}, err
	}
	rec.VocabularyVersion = int(vocab)
	return rec, nil
}

func (r *PostgresRecommendationRepository) Get(ctx context.Context, candidateID, jobID uuid.UUID) (recommendation.Recommendation, error) {
	rec, err := getRecommendation(ctx, r.db, candidateID, jobID, false)
	if err != nil {
		return recommendation.Recommendation{}, err
	}
	if rec == nil {
		return recommendation.Recommendation{}, notFound("recommendation for job", jobID)
	}
	return *rec, nil
}

func getRecommendation(ctx context.Context, q querier, candidateID, jobID uuid.UUID, forUpdate bool) (*recommendation.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations r WHERE r.candidate_id = $1 AND r.job_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rec, err := scanRecommendation(q.QueryRow(ctx, query, candidateID, jobID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRecommendationRepository) Save(ctx context.Context, rec recommendation.Recommendation, decide DecideFunc) (recommendation.SaveOutcome, error) {
	var outcome recommendation.SaveOutcome

	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		// the row may not exist yet, so FOR UPDATE alone cannot serialise the first insert
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			rec.CandidateID.String()+":"+rec.JobID.String(),
		); err != nil {
			return err
		}

		prev, err := getRecommendation(ctx, tx, rec.CandidateID, rec.JobID, true)
		if err != nil {
			return err
		}
		if prev != nil && prev.ComputedAt.After(rec.ComputedAt) {
			outcome = recommendation.OutcomeStale
			return nil
		}

		outcome = recommendation.OutcomeInserted
		if prev != nil {
			outcome = recommendation.OutcomeUpdated
		}

		if decide != nil {
			if audit := decide(prev); audit != nil {
				if err := insertAudit(ctx, tx, *audit); err != nil {
					return err
				}
				outcome = recommendation.OutcomeAudited
			}
		}

		return upsertRecommendation(ctx, tx, rec)
	})
	if err != nil {
		return "", fmt.Errorf("save recommendation %s/%s: %w", rec.CandidateID, rec.JobID, err)
	}
	return outcome, nil
}

func insertAudit(ctx context.Context, tx database.Tx, a recommendation.Audit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var weightsID *uuid.UUID
	if a.WeightsID != uuid.Nil {
		weightsID = &a.WeightsID
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO recommendation_audits (id, candidate_id, job_id, old_score, new_score, delta, reason, weights_id, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.CandidateID, a.JobID, a.OldScore, a.NewScore, a.Delta, a.Reason, weightsID, a.ComputedAt,
	)
	return err
}

func upsertRecommendation(ctx context.Context, tx database.Tx, rec recommendation.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	var weightsID *uuid.UUID
	if rec.WeightsID != uuid.Nil {
		weightsID = &rec.WeightsID
	}
	s := rec.Scores
	_, err := tx.Exec(ctx,
		`INSERT INTO recommendations (id, candidate_id, job_id, overall_score,
			skill_match, content_score, cluster_fit_score, technical_test_score, experience_score,
			salary_score, location_score, remote_bonus, employability_score,
			breakdown, weights_id, cluster_model_id, vocabulary_version, algorithm_version, computed_at,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now())
		 ON CONFLICT (candidate_id, job_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			skill_match = EXCLUDED.skill_match,
			content_score = EXCLUDED.content_score,
			cluster_fit_score = EXCLUDED.cluster_fit_score,
			technical_test_score = EXCLUDED.technical_test_score,
			experience_score = EXCLUDED.experience_score,
			salary_score = EXCLUDED.salary_score,
			location_score = EXCLUDED.location_score,
			remote_bonus = EXCLUDED.remote_bonus,
			employability_score = EXCLUDED.employability_score,
			breakdown = EXCLUDED.breakdown,
			weights_id = EXCLUDED.weights_id,
			cluster_model_id = EXCLUDED.cluster_model_id,
			vocabulary_version = EXCLUDED.vocabulary_version,
			algorithm_version = EXCLUDED.algorithm_version,
			computed_at = EXCLUDED.computed_at,
			updated_at = now()`,
		rec.ID, rec.CandidateID, rec.JobID, rec.OverallScore,
		s.SkillMatch, s.Content, s.ClusterFit, s.TechnicalTest, s.Experience,
		s.Salary, s.Location, s.RemoteBonus, s.Employability,
		rec.Breakdown, weightsID, rec.ClusterModelID, rec.VocabularyVersion, rec.AlgorithmVersion, rec.ComputedAt,
	)
	return err
}

func (r *PostgresRecommendationRepository) ListForCandidate(ctx context.Context, candidateID uuid.UUID, f ListFilter) ([]Listing, error) {
	return r.list(ctx,
		`r.candidate_id = $1
		 AND NOT EXISTS (SELECT 1 FROM recommendation_dismissals d WHERE d.candidate_id = r.candidate_id AND d.job_id = r.job_id)`,
		candidateID, f)
}

func (r *PostgresRecommendationRepository) ListForJob(ctx context.Context, jobID uuid.UUID, f ListFilter) ([]Listing, error) {
	return r.list(ctx,
		`r.job_id = $1
		 AND NOT EXISTS (SELECT 1 FROM recommendation_dismissals d WHERE d.candidate_id = r.candidate_id AND d.job_id = r.job_id)`,
		jobID, f)
}

func (r *PostgresRecommendationRepository) list(ctx context.Context, where string, id uuid.UUID, f ListFilter) ([]Listing, error) {
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+recommendationColumns+`, j.title, j.company, j.posted_at
		 FROM recommendations r
		 JOIN jobs j ON j.id = r.job_id
		 WHERE `+where+`
		   AND j.status = 'active' AND (j.expires_at IS NULL OR j.expires_at > $2)
		   AND r.overall_score >= $3
		 ORDER BY r.overall_score DESC, j.posted_at DESC, r.job_id
		 LIMIT $4`,
		id, now, f.MinScore, f.Limit,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) (Listing, error) {
		var (
			l     Listing
			vocab int32
		)
		dest := append(recommendationDest(&l.Recommendation, &vocab), &l.JobTitle, &l.Company, &l.PostedAt)
		if err := rows.Scan(dest...); err != nil {
			return Listing{}, err
		}
		l.VocabularyVersion = int(vocab)
		return l, nil
	})
}

func (r *PostgresRecommendationRepository) ListAudits(ctx context.Context, candidateID, jobID uuid.UUID) ([]recommendation.Audit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, candidate_id, job_id, old_score, new_score, delta, reason,
			COALESCE(weights_id, '00000000-0000-0000-0000-000000000000'::uuid), computed_at, created_at
		 FROM recommendation_audits
		 WHERE candidate_id = $1 AND job_id = $2
		 ORDER BY computed_at, created_at`,
		candidateID, jobID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) (recommendation.Audit, error) {
		var a recommendation.Audit
		err := rows.Scan(&a.ID, &a.CandidateID, &a.JobID, &a.OldScore, &a.NewScore, &a.Delta, &a.Reason,
			&a.WeightsID, &a.ComputedAt, &a.CreatedAt)
		return a, err
	})
}
