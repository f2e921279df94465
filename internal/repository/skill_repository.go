package repository

import (
	"context"

	"skill-match/internal/database"
	"skill-match/internal/domain/skill"
)

type SkillRepository interface {
	ListSkills(ctx context.Context) ([]skill.Skill, error)
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

func (r *PostgresSkillRepository) ListSkills(ctx context.Context) ([]skill.Skill, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, category, synonyms, created_at FROM skills ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(rows database.Rows) (skill.Skill, error) {
		var (
			s   skill.Skill
			cat string
		)
		if err := rows.Scan(&s.ID, &s.Name, &cat, &s.Synonyms, &s.CreatedAt); err != nil {
			return skill.Skill{}, err
		}
		s.Category = skill.ParseCategory(cat)
		return s, nil
	})
}
