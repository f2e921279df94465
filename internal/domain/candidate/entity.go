package candidate

import (
	"sort"
	"strings"
	"time"

	"skill-match/internal/domain/skill"

	"github.com/google/uuid"
)

type RemotePreference string

const (
	RemoteNone     RemotePreference = ""
	RemoteOnly     RemotePreference = "remote_only"
	RemoteFlexible RemotePreference = "flexible"
	RemoteOnsite   RemotePreference = "onsite"
)

func ParseRemotePreference(s string) RemotePreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote_only", "remote", "remote-only":
		return RemoteOnly
	case "flexible", "hybrid", "any":
		return RemoteFlexible
	case "onsite", "on-site", "office":
		return RemoteOnsite
	default:
		return RemoteNone
	}
}

type Skill struct {
	skill.Skill
	// ProficiencyLevel is self-reported on 1..5; 0 means unspecified.
	ProficiencyLevel int
}

type Candidate struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Skills             []Skill
	Location           string
	PreferredLocations []string
	SalaryMin          float64
	SalaryMax          float64
	PreferredSeniority string
	RemotePreference   RemotePreference
	YearsExperience    float64
	Bio                string
	Experience         string
	Education          string
	UpdatedAt          time.Time
}

type TestStatus string

const (
	TestCompleted  TestStatus = "completed"
	TestInProgress TestStatus = "in_progress"
)

type TestResult struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	SkillID     uuid.UUID
	Score       float64
	Status      TestStatus
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// TechnicalTest is an assessment linked to one catalog skill.
type TechnicalTest struct {
	ID      uuid.UUID
	SkillID uuid.UUID
	Title   string
}

// LatestCompleted keeps, per skill, the completed attempt with the newest completion time.
func LatestCompleted(results []TestResult) map[uuid.UUID]TestResult {
	out := make(map[uuid.UUID]TestResult)
	for _, r := range results {
		if r.Status != TestCompleted || r.CompletedAt == nil {
			continue
		}
		prev, ok := out[r.SkillID]
		if !ok || r.CompletedAt.After(*prev.CompletedAt) ||
			(r.CompletedAt.Equal(*prev.CompletedAt) && r.ID.String() > prev.ID.String()) {
			out[r.SkillID] = r
		}
	}
	return out
}

// EffectiveSkills returns profile skills plus skills verified by a passed test, in a stable
// order. A verified skill without a self-reported level gets one derived from the score.
func EffectiveSkills(c Candidate, latest map[uuid.UUID]TestResult, passThreshold float64, catalog *skill.Catalog) []Skill {
	byID := make(map[uuid.UUID]Skill, len(c.Skills)+len(latest))
	order := make([]uuid.UUID, 0, len(c.Skills)+len(latest))
	noID := make([]Skill, 0)

	for _, s := range c.Skills {
		s.Skill = catalog.Canonical(s.Skill)
		if s.ID == uuid.Nil {
			noID = append(noID, s)
			continue
		}
		if _, ok := byID[s.ID]; !ok {
			order = append(order, s.ID)
		}
		byID[s.ID] = s
	}

	for skillID, r := range latest {
		if r.Score < passThreshold {
			continue
		}
		derived := levelFromScore(r.Score)
		if existing, ok := byID[skillID]; ok {
			if existing.ProficiencyLevel < derived {
				existing.ProficiencyLevel = derived
				byID[skillID] = existing
			}
			continue
		}
		cs, ok := catalog.ByID(skillID)
		if !ok {
			continue
		}
		byID[skillID] = Skill{Skill: cs, ProficiencyLevel: derived}
		order = append(order, skillID)
	}

	out := make([]Skill, 0, len(order)+len(noID))
	for _, id := range order {
		out = append(out, byID[id])
	}
	out = append(out, noID...)
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := skill.Normalize(out[i].Name), skill.Normalize(out[j].Name)
		if ni == nj {
			return out[i].ID.String() < out[j].ID.String()
		}
		return ni < nj
	})
	return out
}

func levelFromScore(score float64) int {
	switch {
	case score >= 90:
		return 5
	case score >= 75:
		return 4
	case score >= 60:
		return 3
	case score >= 40:
		return 2
	default:
		return 1
	}
}

// AverageLatestScore is the mean of the latest completed scores, 0 when there are none.
func AverageLatestScore(latest map[uuid.UUID]TestResult) float64 {
	if len(latest) == 0 {
		return 0
	}
	ids := make([]string, 0, len(latest))
	byKey := make(map[string]float64, len(latest))
	for id, r := range latest {
		k := id.String()
		ids = append(ids, k)
		byKey[k] = r.Score
	}
	sort.Strings(ids)
	sum := 0.0
	for _, k := range ids {
		sum += byKey[k]
	}
	return sum / float64(len(ids))
}
