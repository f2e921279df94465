package weights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"skill-match/internal/domain"

	"github.com/google/uuid"
)

type Factor string

const (
	FactorSkill         Factor = "skill_match"
	FactorContent       Factor = "content_score"
	FactorCluster       Factor = "cluster_fit_score"
	FactorTest          Factor = "technical_test_score"
	FactorExperience    Factor = "experience_score"
	FactorSalary        Factor = "salary_score"
	FactorLocation      Factor = "location_score"
	FactorRemote        Factor = "remote_bonus"
	FactorEmployability Factor = "employability_score"
)

// Factors lists every scoring factor in the order sums are accumulated.
var Factors = []Factor{
	FactorSkill,
	FactorContent,
	FactorCluster,
	FactorTest,
	FactorExperience,
	FactorSalary,
	FactorLocation,
	FactorRemote,
	FactorEmployability,
}

type ScoringWeights struct {
	ID   uuid.UUID
	Name string

	Skill         float64
	Content       float64
	Cluster       float64
	Test          float64
	Experience    float64
	Salary        float64
	Location      float64
	Remote        float64
	Employability float64

	RequiredSkillShare float64
	CategoryWeighted   bool
	TestPassThreshold  float64
	RequiredTestWeight float64
	OptionalTestWeight float64

	Active    bool
	CreatedAt time.Time
}

func (w ScoringWeights) Weight(f Factor) float64 {
	switch f {
	case FactorSkill:
		return w.Skill
	case FactorContent:
		return w.Content
	case FactorCluster:
		return w.Cluster
	case FactorTest:
		return w.Test
	case FactorExperience:
		return w.Experience
	case FactorSalary:
		return w.Salary
	case FactorLocation:
		return w.Location
	case FactorRemote:
		return w.Remote
	case FactorEmployability:
		return w.Employability
	default:
		return 0
	}
}

func (w ScoringWeights) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidWeightsConfig)
	}
	sum := 0.0
	for _, f := range Factors {
		v := w.Weight(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight %s must be a non-negative number", domain.ErrInvalidWeightsConfig, f)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("%w: at least one factor weight must be positive", domain.ErrInvalidWeightsConfig)
	}
	if w.RequiredSkillShare < 0 || w.RequiredSkillShare > 1 {
		return fmt.Errorf("%w: required_skill_share must be within [0,1]", domain.ErrInvalidWeightsConfig)
	}
	if w.TestPassThreshold < 0 || w.TestPassThreshold > 100 {
		return fmt.Errorf("%w: test_pass_threshold must be within [0,100]", domain.ErrInvalidWeightsConfig)
	}
	if w.RequiredTestWeight < 0 || w.OptionalTestWeight < 0 {
		return fmt.Errorf("%w: test weights must be non-negative", domain.ErrInvalidWeightsConfig)
	}
	return nil
}

// Tuning defaults applied when a profile is created without them. An explicit 0 is kept.
const (
	DefaultRequiredSkillShare = 0.7
	DefaultTestPassThreshold  = 60
	DefaultRequiredTestWeight = 2
	DefaultOptionalTestWeight = 1
)

func (w ScoringWeights) withDefaultTuning() ScoringWeights {
	w.RequiredSkillShare = DefaultRequiredSkillShare
	w.TestPassThreshold = DefaultTestPassThreshold
	w.RequiredTestWeight = DefaultRequiredTestWeight
	w.OptionalTestWeight = DefaultOptionalTestWeight
	return w
}

// Balanced is the profile seeded as the initial active configuration.
func Balanced() ScoringWeights {
	return ScoringWeights{
		Name:          "balanced",
		Skill:         0.35,
		Content:       0.15,
		Cluster:       0.10,
		Test:          0.15,
		Experience:    0.08,
		Salary:        0.05,
		Location:      0.05,
		Remote:        0.02,
		Employability: 0.05,
	}.withDefaultTuning()
}

// SkillsFirst ranks almost entirely on declared skills and job text.
func SkillsFirst() ScoringWeights {
	return ScoringWeights{
		Name:    "skills_first",
		Skill:   0.7,
		Content: 0.2,
		Test:    0.1,
	}.withDefaultTuning()
}
