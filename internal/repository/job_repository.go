package repository

import (
	"context"
	"time"

	"skill-match/internal/database"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/skill"

	"github.com/google/uuid"
)

type JobRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (job.Job, error)
	// ListEligible returns active jobs that have not expired at now.
	ListEligible(ctx context.Context, now time.Time) ([]job.Job, error)
	// ListEligibleBySkill narrows ListEligible to jobs that require or prefer skillID.
	ListEligibleBySkill(ctx context.Context, skillID uuid.UUID, now time.Time) ([]job.Job, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `j.id, j.title, j.company, j.location,
	COALESCE(j.salary_min, 0)::float8, COALESCE(j.salary_max, 0)::float8,
	j.seniority, j.is_remote, j.status, j.description, j.requirements, j.responsibilities,
	j.tags, j.posted_at, j.expires_at, j.updated_at`

func scanJob(row database.Row) (job.Job, error) {
	var (
		j         job.Job
		seniority string
		status    string
	)
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location,
		&j.SalaryMin, &j.SalaryMax,
		&seniority, &j.IsRemote, &status, &j.Description, &j.Requirements, &j.Responsibilities,
		&j.Tags, &j.PostedAt, &j.ExpiresAt, &j.UpdatedAt,
	)
	if err != nil {
		return job.Job{}, err
	}
	j.Seniority = job.ParseSeniority(seniority)
	j.Status = job.Status(status)
	return j, nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return job.Job{}, notFound("job", id)
		}
		return job.Job{}, err
	}
	out, err := r.attachSkills(ctx, []job.Job{j})
	if err != nil {
		return job.Job{}, err
	}
	return out[0], nil
}

func (r *PostgresJobRepository) ListEligible(ctx context.Context, now time.Time) ([]job.Job, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 WHERE j.status = 'active' AND (j.expires_at IS NULL OR j.expires_at > $1)
		 ORDER BY j.posted_at DESC, j.id`,
		now,
	)
	if err != nil {
		return nil, err
	}
	jobs, err := collect(rows, func(rows database.Rows) (job.Job, error) { return scanJob(rows) })
	if err != nil {
		return nil, err
	}
	return r.attachSkills(ctx, jobs)
}

func (r *PostgresJobRepository) ListEligibleBySkill(ctx context.Context, skillID uuid.UUID, now time.Time) ([]job.Job, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs j
		 WHERE j.status = 'active' AND (j.expires_at IS NULL OR j.expires_at > $1)
		   AND EXISTS (SELECT 1 FROM job_skills js WHERE js.job_id = j.id AND js.skill_id = $2)
		 ORDER BY j.posted_at DESC, j.id`,
		now, skillID,
	)
	if err != nil {
		return nil, err
	}
	jobs, err := collect(rows, func(rows database.Rows) (job.Job, error) { return scanJob(rows) })
	if err != nil {
		return nil, err
	}
	return r.attachSkills(ctx, jobs)
}

func (r *PostgresJobRepository) attachSkills(ctx context.Context, jobs []job.Job) ([]job.Job, error) {
	if len(jobs) == 0 {
		return jobs, nil
	}
	ids := make([]uuid.UUID, 0, len(jobs))
	pos := make(map[uuid.UUID]int, len(jobs))
	for i, j := range jobs {
		ids = append(ids, j.ID)
		pos[j.ID] = i
	}

	rows, err := r.db.Query(ctx,
		`SELECT js.job_id, js.is_required, s.id, s.name, s.category, s.synonyms, s.created_at
		 FROM job_skills js
		 JOIN skills s ON s.id = js.skill_id
		 WHERE js.job_id = ANY($1)
		 ORDER BY lower(s.name), s.id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jobID    uuid.UUID
			required bool
			s        skill.Skill
			cat      string
		)
		if err := rows.Scan(&jobID, &required, &s.ID, &s.Name, &cat, &s.Synonyms, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Category = skill.ParseCategory(cat)
		i, ok := pos[jobID]
		if !ok {
			continue
		}
		if required {
			jobs[i].RequiredSkills = append(jobs[i].RequiredSkills, s)
		} else {
			jobs[i].PreferredSkills = append(jobs[i].PreferredSkills, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
