package seeder

import (
	"context"
	"fmt"

	"skill-match/internal/database"
	"skill-match/internal/domain/skill"
)

type SkillsSeeder struct{}

func (SkillsSeeder) Name() string { return "skills" }

// DefaultSkills is the starter catalog. Synonyms are matched case-insensitively against job text.
func DefaultSkills() []skill.Skill {
	return []skill.Skill{
		{Name: "Go", Category: skill.CategoryProgramming, Synonyms: []string{"golang"}},
		{Name: "Python", Category: skill.CategoryProgramming, Synonyms: []string{"py"}},
		{Name: "JavaScript", Category: skill.CategoryProgramming, Synonyms: []string{"js", "ecmascript"}},
		{Name: "TypeScript", Category: skill.CategoryProgramming, Synonyms: []string{"ts"}},
		{Name: "Java", Category: skill.CategoryProgramming},
		{Name: "React", Category: skill.CategoryFrontend, Synonyms: []string{"reactjs", "react.js"}},
		{Name: "Vue", Category: skill.CategoryFrontend, Synonyms: []string{"vuejs", "vue.js"}},
		{Name: "Node.js", Category: skill.CategoryBackend, Synonyms: []string{"nodejs", "node"}},
		{Name: "Django", Category: skill.CategoryBackend},
		{Name: "Spring Boot", Category: skill.CategoryBackend, Synonyms: []string{"spring"}},
		{Name: "PostgreSQL", Category: skill.CategoryDatabase, Synonyms: []string{"postgres", "psql"}},
		{Name: "MySQL", Category: skill.CategoryDatabase},
		{Name: "Redis", Category: skill.CategoryDatabase},
		{Name: "MongoDB", Category: skill.CategoryDatabase, Synonyms: []string{"mongo"}},
		{Name: "Docker", Category: skill.CategoryDevOps},
		{Name: "Kubernetes", Category: skill.CategoryDevOps, Synonyms: []string{"k8s"}},
		{Name: "AWS", Category: skill.CategoryDevOps, Synonyms: []string{"amazon web services"}},
		{Name: "Flutter", Category: skill.CategoryMobile},
		{Name: "Kotlin", Category: skill.CategoryMobile},
		{Name: "Jest", Category: skill.CategoryTesting},
		{Name: "Cypress", Category: skill.CategoryTesting},
	}
}

func (SkillsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := RequireColumns(ctx, db, "skills", "id", "name", "category", "synonyms", "created_at"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	for _, it := range DefaultSkills() {
		synonyms := it.Synonyms
		if synonyms == nil {
			synonyms = []string{}
		}
		_, err := tx.Exec(
			ctx,
			`INSERT INTO skills (id, name, category, synonyms) VALUES (gen_random_uuid(), $1, $2, $3)
			 ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, synonyms = EXCLUDED.synonyms`,
			it.Name,
			string(it.Category),
			synonyms,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
