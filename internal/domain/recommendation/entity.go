package recommendation

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// AlgorithmVersion is stored with every computed score.
const AlgorithmVersion = "multi-factor/1"

// auditEpsilon absorbs float noise so a delta of exactly the threshold always audits.
const auditEpsilon = 1e-9

type Scores struct {
	SkillMatch    float64 `json:"skill_match"`
	Content       float64 `json:"content_score"`
	ClusterFit    float64 `json:"cluster_fit_score"`
	TechnicalTest float64 `json:"technical_test_score"`
	Experience    float64 `json:"experience_score"`
	Salary        float64 `json:"salary_score"`
	Location      float64 `json:"location_score"`
	RemoteBonus   float64 `json:"remote_bonus"`
	Employability float64 `json:"employability_score"`
}

type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchPartial  MatchKind = "partial"
	MatchCategory MatchKind = "category"
)

type SkillRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Match MatchKind `json:"match,omitempty"`
	// Via is the candidate skill that produced the match.
	Via string `json:"via,omitempty"`
}

type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestMissing TestStatus = "missing"
)

type TestOutcome struct {
	SkillID   uuid.UUID  `json:"skill_id"`
	SkillName string     `json:"skill_name"`
	Required  bool       `json:"required"`
	Weight    float64    `json:"weight"`
	Score     *float64   `json:"score,omitempty"`
	Status    TestStatus `json:"status"`
}

// Breakdown is everything needed to reconstruct how an overall score was produced.
type Breakdown struct {
	MatchedRequired  []SkillRef `json:"matched_required"`
	MissingRequired  []SkillRef `json:"missing_required"`
	MatchedPreferred []SkillRef `json:"matched_preferred"`
	MissingPreferred []SkillRef `json:"missing_preferred"`
	Related          []SkillRef `json:"related"`

	RequiredSkillScore  *float64 `json:"required_skill_score,omitempty"`
	PreferredSkillScore *float64 `json:"preferred_skill_score,omitempty"`

	Tests []TestOutcome `json:"tests"`

	Applicable []string           `json:"applicable_factors"`
	Excluded   []string           `json:"excluded_factors"`
	Weights    map[string]float64 `json:"weights"`

	JobCluster     int  `json:"job_cluster"`
	ClusterNeutral bool `json:"cluster_neutral"`
}

type Recommendation struct {
	ID                uuid.UUID
	CandidateID       uuid.UUID
	JobID             uuid.UUID
	OverallScore      float64
	Scores            Scores
	Breakdown         Breakdown
	WeightsID         uuid.UUID
	ClusterModelID    *uuid.UUID
	VocabularyVersion int
	AlgorithmVersion  string
	ComputedAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Audit struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	JobID       uuid.UUID
	OldScore    float64
	NewScore    float64
	Delta       float64
	Reason      string
	WeightsID   uuid.UUID
	ComputedAt  time.Time
	CreatedAt   time.Time
}

// SaveOutcome describes what a persist call did with one computed pair.
type SaveOutcome string

const (
	OutcomeInserted SaveOutcome = "inserted"
	OutcomeUpdated  SaveOutcome = "updated"
	OutcomeAudited  SaveOutcome = "audited"
	OutcomeStale    SaveOutcome = "stale"
)

// Delta is the score change in points, rounded like the stored scores.
func Delta(oldScore, newScore float64) float64 {
	return math.Round((newScore-oldScore)*100) / 100
}

// ShouldAudit reports whether moving from oldScore to newScore crosses the materiality threshold.
func ShouldAudit(oldScore, newScore, threshold float64) bool {
	return math.Abs(Delta(oldScore, newScore)) >= threshold-auditEpsilon
}

// NewAudit builds the audit row for replacing prev with next, or nil when the change is immaterial.
func NewAudit(prev, next Recommendation, threshold float64, reason string) *Audit {
	if !ShouldAudit(prev.OverallScore, next.OverallScore, threshold) {
		return nil
	}
	if reason == "" {
		reason = "recompute"
	}
	return &Audit{
		ID:          uuid.New(),
		CandidateID: next.CandidateID,
		JobID:       next.JobID,
		OldScore:    prev.OverallScore,
		NewScore:    next.OverallScore,
		Delta:       Delta(prev.OverallScore, next.OverallScore),
		Reason:      reason,
		WeightsID:   next.WeightsID,
		ComputedAt:  next.ComputedAt,
	}
}

// Less orders recommendations by score, then newest posting, then job id.
func Less(a, b Recommendation, aPosted, bPosted time.Time) bool {
	if a.OverallScore != b.OverallScore {
		return a.OverallScore > b.OverallScore
	}
	if !aPosted.Equal(bPosted) {
		return aPosted.After(bPosted)
	}
	return a.JobID.String() < b.JobID.String()
}
