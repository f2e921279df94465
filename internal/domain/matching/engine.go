package matching

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/domain/skill"
	"skill-match/internal/domain/weights"

	"github.com/google/uuid"
)

// Input is one (candidate, job) pair plus the configuration it is scored under.
type Input struct {
	Candidate candidate.Candidate
	Job       job.Job
	Weights   weights.ScoringWeights
	Catalog   *skill.Catalog

	// Vocabulary may be nil when no vocabulary has been fitted yet.
	Vocabulary *feature.Vocabulary
	// Precomputed term vectors; computed from Vocabulary when nil.
	CandidateTerms *feature.TermVector
	JobTerms       *feature.TermVector

	Model *cluster.Model

	Tests   []candidate.TechnicalTest
	Results []candidate.TestResult

	Employability float64
	Now           time.Time
}

type Result struct {
	OverallScore      float64
	Scores            recommendation.Scores
	Breakdown         recommendation.Breakdown
	WeightsID         uuid.UUID
	ClusterModelID    *uuid.UUID
	VocabularyVersion int
	AlgorithmVersion  string
	ComputedAt        time.Time
}

func (r Result) Recommendation(candidateID, jobID uuid.UUID) recommendation.Recommendation {
	return recommendation.Recommendation{
		CandidateID:       candidateID,
		JobID:             jobID,
		OverallScore:      r.OverallScore,
		Scores:            r.Scores,
		Breakdown:         r.Breakdown,
		WeightsID:         r.WeightsID,
		ClusterModelID:    r.ClusterModelID,
		VocabularyVersion: r.VocabularyVersion,
		AlgorithmVersion:  r.AlgorithmVersion,
		ComputedAt:        r.ComputedAt,
	}
}

type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Score is deterministic for identical inputs apart from ComputedAt.
func (e *Engine) Score(in Input) Result {
	w := in.Weights
	computedAt := in.Now
	if computedAt.IsZero() {
		now := time.Now
		if e != nil && e.now != nil {
			now = e.now
		}
		computedAt = now().UTC()
	}

	latest := candidate.LatestCompleted(in.Results)
	candSkills := candidate.EffectiveSkills(in.Candidate, latest, w.TestPassThreshold, in.Catalog)

	factors := make(map[weights.Factor]float64, len(weights.Factors))
	excluded := make(map[weights.Factor]bool)

	b := recommendation.Breakdown{JobCluster: -1}

	// skills
	req := ScoreSkillSet(in.Job.RequiredSkills, candSkills, in.Catalog, w.CategoryWeighted)
	pref := ScoreSkillSet(in.Job.PreferredSkills, candSkills, in.Catalog, w.CategoryWeighted)
	b.MatchedRequired, b.MissingRequired = req.Matched, req.Missing
	b.MatchedPreferred, b.MissingPreferred = pref.Matched, pref.Missing
	b.Related = append(append([]recommendation.SkillRef{}, req.Related...), pref.Related...)
	if req.Applicable {
		v := req.Score
		b.RequiredSkillScore = &v
	}
	if pref.Applicable {
		v := pref.Score
		b.PreferredSkillScore = &v
	}
	if s, ok := CombineSkillScores(req, pref, w.RequiredSkillShare); ok {
		factors[weights.FactorSkill] = s
	} else {
		excluded[weights.FactorSkill] = true
	}

	// content
	vocabVersion := 0
	if in.Vocabulary != nil {
		vocabVersion = in.Vocabulary.Version
		ct := in.CandidateTerms
		if ct == nil {
			v := in.Vocabulary.Transform(feature.CandidateDocument(withSkills(in.Candidate, candSkills)))
			ct = &v
		}
		jt := in.JobTerms
		if jt == nil {
			v := in.Vocabulary.Transform(feature.JobDocument(in.Job))
			jt = &v
		}
		factors[weights.FactorContent] = Cosine(*ct, *jt)
	} else {
		excluded[weights.FactorContent] = true
	}

	// cluster
	var modelID *uuid.UUID
	if in.Model.Compatible(in.Catalog.Fingerprint(), feature.Dimension(in.Catalog)) {
		id := in.Model.ID
		modelID = &id
		jobVec := feature.JobVector(in.Job, in.Catalog)
		candVec := feature.CandidateVector(in.Candidate, in.Results, w.TestPassThreshold, in.Employability, in.Catalog)
		b.JobCluster = in.Model.Assign(jobVec)
		factors[weights.FactorCluster] = in.Model.FitScore(candVec, jobVec)
	} else {
		b.ClusterNeutral = true
		factors[weights.FactorCluster] = cluster.NeutralFit
	}

	// technical tests
	if s, outcomes, ok := testScore(in, latest, w); ok {
		factors[weights.FactorTest] = s
		b.Tests = outcomes
	} else {
		excluded[weights.FactorTest] = true
		b.Tests = []recommendation.TestOutcome{}
	}

	if s, ok := experienceScore(in.Candidate, in.Job); ok {
		factors[weights.FactorExperience] = s
	} else {
		excluded[weights.FactorExperience] = true
	}
	if s, ok := salaryScore(in.Candidate, in.Job); ok {
		factors[weights.FactorSalary] = s
	} else {
		excluded[weights.FactorSalary] = true
	}
	if s, ok := locationScore(in.Candidate, in.Job); ok {
		factors[weights.FactorLocation] = s
	} else {
		excluded[weights.FactorLocation] = true
	}
	factors[weights.FactorRemote] = remoteBonus(in.Candidate.RemotePreference, in.Job.IsRemote)
	factors[weights.FactorEmployability] = clamp01(in.Employability)

	num, den := 0.0, 0.0
	b.Weights = make(map[string]float64, len(weights.Factors))
	b.Applicable = []string{}
	b.Excluded = []string{}
	for _, f := range weights.Factors {
		wt := w.Weight(f)
		b.Weights[string(f)] = wt
		if excluded[f] {
			b.Excluded = append(b.Excluded, string(f))
			continue
		}
		b.Applicable = append(b.Applicable, string(f))
		num += wt * factors[f]
		den += wt
	}
	overall := 0.0
	if den > 0 {
		overall = round2(num / den * 100)
	}

	return Result{
		OverallScore: overall,
		Scores: recommendation.Scores{
			SkillMatch:    factors[weights.FactorSkill],
			Content:       factors[weights.FactorContent],
			ClusterFit:    factors[weights.FactorCluster],
			TechnicalTest: factors[weights.FactorTest],
			Experience:    factors[weights.FactorExperience],
			Salary:        factors[weights.FactorSalary],
			Location:      factors[weights.FactorLocation],
			RemoteBonus:   factors[weights.FactorRemote],
			Employability: factors[weights.FactorEmployability],
		},
		Breakdown:         b,
		WeightsID:         w.ID,
		ClusterModelID:    modelID,
		VocabularyVersion: vocabVersion,
		AlgorithmVersion:  recommendation.AlgorithmVersion,
		ComputedAt:        computedAt,
	}
}

func withSkills(c candidate.Candidate, skills []candidate.Skill) candidate.Candidate {
	c.Skills = skills
	return c
}

// testScore averages the latest completed score per relevant skill; tests never attempted
// count as 0 with their weight kept in the denominator.
func testScore(in Input, latest map[uuid.UUID]candidate.TestResult, w weights.ScoringWeights) (float64, []recommendation.TestOutcome, bool) {
	required := make(map[uuid.UUID]skill.Skill)
	preferred := make(map[uuid.UUID]skill.Skill)
	for _, s := range in.Job.PreferredSkills {
		s = in.Catalog.Canonical(s)
		preferred[s.ID] = s
	}
	for _, s := range in.Job.RequiredSkills {
		s = in.Catalog.Canonical(s)
		required[s.ID] = s
		delete(preferred, s.ID)
	}

	seen := make(map[uuid.UUID]struct{})
	outcomes := make([]recommendation.TestOutcome, 0)
	for _, t := range in.Tests {
		if t.SkillID == uuid.Nil {
			continue
		}
		if _, ok := seen[t.SkillID]; ok {
			continue
		}
		var (
			js     skill.Skill
			isReq  bool
			weight float64
		)
		if s, ok := required[t.SkillID]; ok {
			js, isReq, weight = s, true, w.RequiredTestWeight
		} else if s, ok := preferred[t.SkillID]; ok {
			js, weight = s, w.OptionalTestWeight
		} else {
			continue
		}
		seen[t.SkillID] = struct{}{}

		o := recommendation.TestOutcome{SkillID: t.SkillID, SkillName: js.Name, Required: isReq, Weight: weight, Status: recommendation.TestMissing}
		if r, ok := latest[t.SkillID]; ok {
			score := r.Score
			o.Score = &score
			if score >= w.TestPassThreshold {
				o.Status = recommendation.TestPassed
			} else {
				o.Status = recommendation.TestFailed
			}
		}
		outcomes = append(outcomes, o)
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].Required != outcomes[j].Required {
			return outcomes[i].Required
		}
		return outcomes[i].SkillID.String() < outcomes[j].SkillID.String()
	})

	num, den := 0.0, 0.0
	for _, o := range outcomes {
		den += o.Weight
		if o.Score != nil {
			num += o.Weight * clamp01(*o.Score/100)
		}
	}
	if len(outcomes) == 0 || den == 0 {
		return 0, outcomes, false
	}
	return num / den, outcomes, true
}

func experienceScore(c candidate.Candidate, j job.Job) (float64, bool) {
	expected, ok := j.Seniority.ExpectedYears()
	if !ok {
		return 0, false
	}
	if expected <= 0 {
		return 1, true
	}
	return clamp01(c.YearsExperience / expected), true
}

func salaryScore(c candidate.Candidate, j job.Job) (float64, bool) {
	if !j.HasSalary() {
		return 0, false
	}
	if c.SalaryMin <= 0 {
		return 1, true
	}
	upper := j.SalaryUpper()
	if upper >= c.SalaryMin {
		return 1, true
	}
	return clamp01(upper / c.SalaryMin), true
}

func locationScore(c candidate.Candidate, j job.Job) (float64, bool) {
	if j.IsRemote {
		return 1, true
	}
	jl := skill.Normalize(j.Location)
	if jl == "" {
		return 0, false
	}
	wanted := make([]string, 0, 1+len(c.PreferredLocations))
	wanted = append(wanted, c.Location)
	wanted = append(wanted, c.PreferredLocations...)

	jt := locationTokens(jl)
	best := 0.0
	for _, loc := range wanted {
		l := skill.Normalize(loc)
		if l == "" {
			continue
		}
		if l == jl {
			return 1, true
		}
		for tok := range locationTokens(l) {
			if _, ok := jt[tok]; ok {
				best = 0.5
			}
		}
	}
	return best, true
}

func locationTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if len([]rune(f)) >= 2 {
			out[f] = struct{}{}
		}
	}
	return out
}

func remoteBonus(pref candidate.RemotePreference, remoteJob bool) float64 {
	if remoteJob {
		switch pref {
		case candidate.RemoteOnly:
			return 1.0
		case candidate.RemoteFlexible:
			return 0.8
		case candidate.RemoteOnsite:
			return 0.2
		default:
			return 0.5
		}
	}
	switch pref {
	case candidate.RemoteOnly:
		return 0.0
	case candidate.RemoteFlexible:
		return 0.6
	case candidate.RemoteOnsite:
		return 1.0
	default:
		return 0.5
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
