package feature

import (
	"strings"

	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/job"
)

// JobDocument is the text a job contributes to the content space.
func JobDocument(j job.Job) string {
	parts := make([]string, 0, 4+len(j.RequiredSkills)+len(j.PreferredSkills)+len(j.Tags))
	parts = append(parts, j.Title, j.Description, j.Requirements, j.Responsibilities)
	for _, s := range j.RequiredSkills {
		parts = append(parts, s.Name)
	}
	for _, s := range j.PreferredSkills {
		parts = append(parts, s.Name)
	}
	parts = append(parts, j.Tags...)
	return joinNonEmpty(parts)
}

// CandidateDocument repeats each skill name by its proficiency so stronger skills weigh more.
// Every repetition is its own line.
func CandidateDocument(c candidate.Candidate) string {
	parts := make([]string, 0, len(c.Skills)+3)
	for _, s := range c.Skills {
		reps := s.ProficiencyLevel
		if reps < 1 {
			reps = 1
		}
		if reps > 5 {
			reps = 5
		}
		for i := 0; i < reps; i++ {
			parts = append(parts, s.Name)
		}
	}
	parts = append(parts, c.Bio, c.Experience, c.Education)
	return joinNonEmpty(parts)
}

// joinNonEmpty puts one field per line.
func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
