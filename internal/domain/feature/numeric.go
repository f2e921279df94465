package feature

import (
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/skill"
)

// AuxDims is the number of non-skill dimensions appended after the catalog skills.
const AuxDims = 3

// SalaryCeiling maps a salary onto [0,1] for the cluster space.
const SalaryCeiling = 300000.0

const experienceCap = 20.0

func Dimension(catalog *skill.Catalog) int {
	return catalog.Len() + AuxDims
}

// JobVector lays out a job in cluster space: 1.0 per required skill, 0.5 per preferred skill,
// then salary level, seniority level and the remote flag.
func JobVector(j job.Job, catalog *skill.Catalog) []float64 {
	n := catalog.Len()
	v := make([]float64, n+AuxDims)
	for _, s := range j.PreferredSkills {
		if i, ok := catalog.IndexOf(catalog.Canonical(s).ID); ok {
			v[i] = 0.5
		}
	}
	for _, s := range j.RequiredSkills {
		if i, ok := catalog.IndexOf(catalog.Canonical(s).ID); ok {
			v[i] = 1.0
		}
	}

	if j.HasSalary() {
		v[n] = clamp01(j.SalaryMidpoint() / SalaryCeiling)
	}
	v[n+1] = j.Seniority.Level()
	if j.IsRemote {
		v[n+2] = 1
	}
	return v
}

// CandidateVector lays out a candidate in cluster space: 1.0 per possessed skill, then the
// average latest test score, an experience proxy and the employability signal.
func CandidateVector(c candidate.Candidate, results []candidate.TestResult, passThreshold, employability float64, catalog *skill.Catalog) []float64 {
	n := catalog.Len()
	v := make([]float64, n+AuxDims)

	latest := candidate.LatestCompleted(results)
	skills := candidate.EffectiveSkills(c, latest, passThreshold, catalog)
	for _, s := range skills {
		if i, ok := catalog.IndexOf(s.ID); ok {
			v[i] = 1
		}
	}

	v[n] = clamp01(candidate.AverageLatestScore(latest) / 100)
	if c.YearsExperience > 0 {
		v[n+1] = clamp01(c.YearsExperience / experienceCap)
	} else {
		v[n+1] = clamp01(float64(len(skills)) / experienceCap)
	}
	v[n+2] = clamp01(employability)
	return v
}

func clamp01(x float64) float64 {
	switch {
	case x != x:
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
