package repository

import (
	"context"
	"fmt"

	"skill-match/internal/database"
	"skill-match/internal/domain"
	"skill-match/internal/domain/cluster"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ClusterModelRepository interface {
	GetActive(ctx context.Context) (*cluster.Model, error)
	// SaveAndActivate persists the model with its centers and makes it the active model in one transaction.
	SaveAndActivate(ctx context.Context, m *cluster.Model) error
}

type PostgresClusterModelRepository struct {
	db database.DB
}

func NewPostgresClusterModelRepository(db database.DB) *PostgresClusterModelRepository {
	return &PostgresClusterModelRepository{db: db}
}

func (r *PostgresClusterModelRepository) GetActive(ctx context.Context) (*cluster.Model, error) {
	m := &cluster.Model{}
	var k, candidates, jobs, iterations int32
	err := r.db.QueryRow(ctx,
		`SELECT id, version, k, scaler_mean, scaler_scale, inertia, silhouette, candidate_count, job_count,
			iterations, seed, catalog_fingerprint, trained_at, active
		 FROM cluster_models WHERE active`,
	).Scan(
		&m.ID, &m.Version, &k, &m.Scaler.Mean, &m.Scaler.Scale, &m.Inertia, &m.Silhouette, &candidates, &jobs,
		&iterations, &m.Seed, &m.CatalogFingerprint, &m.TrainedAt, &m.Active,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: no active cluster model", domain.ErrDataNotFound)
		}
		return nil, err
	}
	m.K, m.CandidateCount, m.JobCount, m.Iterations = int(k), int(candidates), int(jobs), int(iterations)

	centers, err := loadCenters(ctx, r.db, m.ID)
	if err != nil {
		return nil, err
	}
	if len(centers) != m.K {
		return nil, fmt.Errorf("cluster model %s has %d centers, expected %d", m.ID, len(centers), m.K)
	}
	m.Centers = centers
	return m, nil
}

func loadCenters(ctx context.Context, q querier, modelID uuid.UUID) ([][]float64, error) {
	rows, err := q.Query(ctx,
		`SELECT center::text FROM cluster_model_centers WHERE model_id = $1 ORDER BY cluster_index`,
		modelID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) ([]float64, error) {
		var v pgvector.Vector
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		f32 := v.Slice()
		out := make([]float64, len(f32))
		for i, x := range f32 {
			out[i] = float64(x)
		}
		return out, nil
	})
}

func (r *PostgresClusterModelRepository) SaveAndActivate(ctx context.Context, m *cluster.Model) error {
	if m == nil || len(m.Centers) == 0 {
		return fmt.Errorf("%w: cluster model without centers", domain.ErrValidation)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		var version int32
		err := tx.QueryRow(ctx,
			`INSERT INTO cluster_models (id, k, dimension, scaler_mean, scaler_scale, inertia, silhouette,
				candidate_count, job_count, iterations, seed, catalog_fingerprint, trained_at, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false)
			 RETURNING version`,
			m.ID, m.K, m.Dimension(), m.Scaler.Mean, m.Scaler.Scale, m.Inertia, m.Silhouette,
			m.CandidateCount, m.JobCount, m.Iterations, m.Seed, m.CatalogFingerprint, m.TrainedAt,
		).Scan(&version)
		if err != nil {
			return err
		}
		m.Version = int(version)

		for i, c := range m.Centers {
			f32 := make([]float32, len(c))
			for d, x := range c {
				f32[d] = float32(x)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO cluster_model_centers (model_id, cluster_index, center) VALUES ($1, $2, $3::text::vector)`,
				m.ID, i, pgvector.NewVector(f32),
			); err != nil {
				return err
			}
		}

		if err := activate(ctx, tx, "cluster_models", m.ID, nil); err != nil {
			return err
		}
		m.Active = true
		return nil
	})
}
