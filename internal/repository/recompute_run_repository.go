package repository

import (
	"context"
	"time"

	"skill-match/internal/database"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RecomputeRun is the persisted summary of one batch recompute.
type RecomputeRun struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	SubjectID  *uuid.UUID `json:"subject_id,omitempty"`
	Status     RunStatus  `json:"status"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Audited    int        `json:"audited"`
	Stale      int        `json:"stale"`
	Cancelled  bool       `json:"cancelled"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type RecomputeRunRepository interface {
	Start(ctx context.Context, kind string, subjectID *uuid.UUID) (RecomputeRun, error)
	Finish(ctx context.Context, run RecomputeRun) error
	Get(ctx context.Context, id uuid.UUID) (RecomputeRun, error)
}

type PostgresRecomputeRunRepository struct {
	db database.DB
}

func NewPostgresRecomputeRunRepository(db database.DB) *PostgresRecomputeRunRepository {
	return &PostgresRecomputeRunRepository{db: db}
}

func (r *PostgresRecomputeRunRepository) Start(ctx context.Context, kind string, subjectID *uuid.UUID) (RecomputeRun, error) {
	run := RecomputeRun{
		ID:        uuid.New(),
		Kind:      kind,
		SubjectID: subjectID,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO recompute_runs (id, kind, subject_id, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Kind, run.SubjectID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return RecomputeRun{}, err
	}
	return run, nil
}

func (r *PostgresRecomputeRunRepository) Finish(ctx context.Context, run RecomputeRun) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	n, err := r.db.Exec(ctx,
		`UPDATE recompute_runs
		 SET status = $2, total = $3, succeeded = $4, failed = $5, audited = $6, stale = $7,
			cancelled = $8, error = $9, finished_at = $10
		 WHERE id = $1`,
		run.ID, string(run.Status), run.Total, run.Succeeded, run.Failed, run.Audited, run.Stale,
		run.Cancelled, run.Error, finished,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("recompute run", run.ID)
	}
	return nil
}

func (r *PostgresRecomputeRunRepository) Get(ctx context.Context, id uuid.UUID) (RecomputeRun, error) {
	var (
		run                                          RecomputeRun
		status                                       string
		total, succeeded, failed, audited, staleRows int32
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, kind, subject_id, status, total, succeeded, failed, audited, stale, cancelled, error, started_at, finished_at
		 FROM recompute_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Kind, &run.SubjectID, &status, &total, &succeeded, &failed, &audited, &staleRows,
		&run.Cancelled, &run.Error, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if isNoRows(err) {
			return RecomputeRun{}, notFound("recompute run", id)
		}
		return RecomputeRun{}, err
	}
	run.Status = RunStatus(status)
	run.Total, run.Succeeded, run.Failed = int(total), int(succeeded), int(failed)
	run.Audited, run.Stale = int(audited), int(staleRows)
	return run, nil
}
