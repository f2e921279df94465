package repository

import (
	"context"

	"skill-match/internal/database"
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/skill"

	"github.com/google/uuid"
)

type CandidateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (candidate.Candidate, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (candidate.Candidate, error)
	ListAll(ctx context.Context) ([]candidate.Candidate, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]candidate.Candidate, error)
}

type PostgresCandidateRepository struct {
	db database.DB
}

func NewPostgresCandidateRepository(db database.DB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

const candidateColumns = `c.id, c.user_id, c.location, c.preferred_locations,
	COALESCE(c.salary_expectation_min, 0)::float8, COALESCE(c.salary_expectation_max, 0)::float8,
	c.preferred_seniority, c.remote_preference, c.years_experience::float8,
	c.bio, c.experience, c.education, c.updated_at`

func scanCandidate(row database.Row) (candidate.Candidate, error) {
	var (
		c      candidate.Candidate
		remote string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Location, &c.PreferredLocations,
		&c.SalaryMin, &c.SalaryMax,
		&c.PreferredSeniority, &remote, &c.YearsExperience,
		&c.Bio, &c.Experience, &c.Education, &c.UpdatedAt,
	)
	if err != nil {
		return candidate.Candidate{}, err
	}
	c.RemotePreference = candidate.ParseRemotePreference(remote)
	return c, nil
}

func (r *PostgresCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (candidate.Candidate, error) {
	return r.getOne(ctx, `SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1`, id)
}

func (r *PostgresCandidateRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (candidate.Candidate, error) {
	return r.getOne(ctx, `SELECT `+candidateColumns+` FROM candidates c WHERE c.user_id = $1`, userID)
}

func (r *PostgresCandidateRepository) getOne(ctx context.Context, query string, id uuid.UUID) (candidate.Candidate, error) {
	c, err := scanCandidate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return candidate.Candidate{}, notFound("candidate", id)
		}
		return candidate.Candidate{}, err
	}
	out, err := r.attachSkills(ctx, []candidate.Candidate{c})
	if err != nil {
		return candidate.Candidate{}, err
	}
	return out[0], nil
}

func (r *PostgresCandidateRepository) ListAll(ctx context.Context) ([]candidate.Candidate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+candidateColumns+` FROM candidates c ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	cands, err := collect(rows, func(rows database.Rows) (candidate.Candidate, error) { return scanCandidate(rows) })
	if err != nil {
		return nil, err
	}
	return r.attachSkills(ctx, cands)
}

func (r *PostgresCandidateRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]candidate.Candidate, error) {
	if len(ids) == 0 {
		return []candidate.Candidate{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+candidateColumns+` FROM candidates c WHERE c.id = ANY($1) ORDER BY c.id`, ids)
	if err != nil {
		return nil, err
	}
	cands, err := collect(rows, func(rows database.Rows) (candidate.Candidate, error) { return scanCandidate(rows) })
	if err != nil {
		return nil, err
	}
	return r.attachSkills(ctx, cands)
}

func (r *PostgresCandidateRepository) attachSkills(ctx context.Context, cands []candidate.Candidate) ([]candidate.Candidate, error) {
	if len(cands) == 0 {
		return cands, nil
	}
	ids := make([]uuid.UUID, 0, len(cands))
	pos := make(map[uuid.UUID]int, len(cands))
	for i, c := range cands {
		ids = append(ids, c.ID)
		pos[c.ID] = i
	}

	rows, err := r.db.Query(ctx,
		`SELECT cs.candidate_id, cs.proficiency_level, s.id, s.name, s.category, s.synonyms, s.created_at
		 FROM candidate_skills cs
		 JOIN skills s ON s.id = cs.skill_id
		 WHERE cs.candidate_id = ANY($1)
		 ORDER BY lower(s.name), s.id`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			candID uuid.UUID
			level  int16
			s      skill.Skill
			cat    string
		)
		if err := rows.Scan(&candID, &level, &s.ID, &s.Name, &cat, &s.Synonyms, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Category = skill.ParseCategory(cat)
		if i, ok := pos[candID]; ok {
			cands[i].Skills = append(cands[i].Skills, candidate.Skill{Skill: s, ProficiencyLevel: int(level)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cands, nil
}
