package job

import (
	"strings"
	"time"

	"skill-match/internal/domain/skill"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusClosed Status = "closed"
	StatusDraft  Status = "draft"
)

type Seniority string

const (
	SeniorityUnknown   Seniority = ""
	SeniorityIntern    Seniority = "intern"
	SeniorityJunior    Seniority = "junior"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityLead      Seniority = "lead"
	SeniorityPrincipal Seniority = "principal"
)

func ParseSeniority(s string) Seniority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intern", "internship", "trainee":
		return SeniorityIntern
	case "junior", "entry", "entry-level":
		return SeniorityJunior
	case "mid", "middle", "intermediate", "mid-level":
		return SeniorityMid
	case "senior":
		return SenioritySenior
	case "lead", "staff":
		return SeniorityLead
	case "principal", "architect":
		return SeniorityPrincipal
	default:
		return SeniorityUnknown
	}
}

// Level places the seniority on [0,1]; unknown sits in the middle.
func (s Seniority) Level() float64 {
	switch s {
	case SeniorityIntern:
		return 0
	case SeniorityJunior:
		return 0.25
	case SeniorityMid:
		return 0.5
	case SenioritySenior:
		return 0.75
	case SeniorityLead, SeniorityPrincipal:
		return 1.0
	default:
		return 0.5
	}
}

// ExpectedYears is the experience a role of this seniority usually asks for.
func (s Seniority) ExpectedYears() (float64, bool) {
	switch s {
	case SeniorityIntern:
		return 0, true
	case SeniorityJunior:
		return 1, true
	case SeniorityMid:
		return 3, true
	case SenioritySenior:
		return 5, true
	case SeniorityLead:
		return 8, true
	case SeniorityPrincipal:
		return 10, true
	default:
		return 0, false
	}
}

type Job struct {
	ID               uuid.UUID
	Title            string
	Company          string
	Location         string
	SalaryMin        float64
	SalaryMax        float64
	Seniority        Seniority
	IsRemote         bool
	Status           Status
	RequiredSkills   []skill.Skill
	PreferredSkills  []skill.Skill
	Description      string
	Requirements     string
	Responsibilities string
	Tags             []string
	PostedAt         time.Time
	ExpiresAt        *time.Time
	UpdatedAt        time.Time
}

// Eligible reports whether the job can be scored at now: active and not expired.
func (j Job) Eligible(now time.Time) bool {
	if j.Status != StatusActive {
		return false
	}
	if j.ExpiresAt != nil && !j.ExpiresAt.IsZero() && !now.Before(*j.ExpiresAt) {
		return false
	}
	return true
}

func (j Job) HasSalary() bool {
	return j.SalaryMin > 0 || j.SalaryMax > 0
}

// SalaryMidpoint tolerates one-sided ranges.
func (j Job) SalaryMidpoint() float64 {
	switch {
	case j.SalaryMin > 0 && j.SalaryMax > 0:
		return (j.SalaryMin + j.SalaryMax) / 2
	case j.SalaryMax > 0:
		return j.SalaryMax
	default:
		return j.SalaryMin
	}
}

// SalaryUpper is the best salary the job offers.
func (j Job) SalaryUpper() float64 {
	if j.SalaryMax > 0 {
		return j.SalaryMax
	}
	return j.SalaryMin
}

// MentionsSkill reports whether id is a required or preferred skill of the job.
func (j Job) MentionsSkill(id uuid.UUID) bool {
	for _, s := range j.RequiredSkills {
		if s.ID == id {
			return true
		}
	}
	for _, s := range j.PreferredSkills {
		if s.ID == id {
			return true
		}
	}
	return false
}
