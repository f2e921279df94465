package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/domain/skill"
	"skill-match/internal/domain/weights"
	"skill-match/internal/repository"

	"github.com/google/uuid"
)

type mockSkillRepo struct{ items []skill.Skill }

func (m mockSkillRepo) ListSkills(context.Context) ([]skill.Skill, error) { return m.items, nil }

type mockJobRepo struct{ items []job.Job }

func (m mockJobRepo) GetByID(_ context.Context, id uuid.UUID) (job.Job, error) {
	for _, j := range m.items {
		if j.ID == id {
			return j, nil
		}
	}
	return job.Job{}, fmt.Errorf("%w: job %s", domain.ErrDataNotFound, id)
}
func (m mockJobRepo) ListEligible(_ context.Context, now time.Time) ([]job.Job, error) {
	out := make([]job.Job, 0)
	for _, j := range m.items {
		if j.Eligible(now) {
			out = append(out, j)
		}
	}
	return out, nil
}
func (m mockJobRepo) ListEligibleBySkill(ctx context.Context, skillID uuid.UUID, now time.Time) ([]job.Job, error) {
	all, _ := m.ListEligible(ctx, now)
	out := make([]job.Job, 0)
	for _, j := range all {
		if j.MentionsSkill(skillID) {
			out = append(out, j)
		}
	}
	return out, nil
}

type mockCandidateRepo struct{ items []candidate.Candidate }

func (m mockCandidateRepo) GetByID(_ context.Context, id uuid.UUID) (candidate.Candidate, error) {
	for _, c := range m.items {
		if c.ID == id {
			return c, nil
		}
	}
	return candidate.Candidate{}, fmt.Errorf("%w: candidate %s", domain.ErrDataNotFound, id)
}
func (m mockCandidateRepo) GetByUserID(_ context.Context, id uuid.UUID) (candidate.Candidate, error) {
	for _, c := range m.items {
		if c.UserID == id {
			return c, nil
		}
	}
	return candidate.Candidate{}, fmt.Errorf("%w: candidate for user %s", domain.ErrDataNotFound, id)
}
func (m mockCandidateRepo) ListAll(context.Context) ([]candidate.Candidate, error) { return m.items, nil }
func (m mockCandidateRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]candidate.Candidate, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]candidate.Candidate, 0)
	for _, c := range m.items {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockTestRepo struct {
	tests   []candidate.TechnicalTest
	results []candidate.TestResult
}

func (m mockTestRepo) ListTests(context.Context) ([]candidate.TechnicalTest, error) { return m.tests, nil }
func (m mockTestRepo) ListResults(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]candidate.TestResult, error) {
	out := make(map[uuid.UUID][]candidate.TestResult)
	for _, r := range m.results {
		out[r.CandidateID] = append(out[r.CandidateID], r)
	}
	return out, nil
}

type mockDismissalRepo struct{ pairs map[[2]uuid.UUID]bool }

func (m mockDismissalRepo) DismissedJobs(_ context.Context, candidateID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	for p := range m.pairs {
		if p[0] == candidateID {
			out[p[1]] = struct{}{}
		}
	}
	return out, nil
}
func (m mockDismissalRepo) DismissedCandidates(_ context.Context, jobID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	for p := range m.pairs {
		if p[1] == jobID {
			out[p[0]] = struct{}{}
		}
	}
	return out, nil
}

type mockWeightsRepo struct {
	mu     sync.Mutex
	items  []weights.ScoringWeights
	active uuid.UUID
}

func (m *mockWeightsRepo) List(context.Context) ([]weights.ScoringWeights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]weights.ScoringWeights(nil), m.items...), nil
}
func (m *mockWeightsRepo) GetByID(_ context.Context, id uuid.UUID) (weights.ScoringWeights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.items {
		if w.ID == id {
			w.Active = w.ID == m.active
			return w, nil
		}
	}
	return weights.ScoringWeights{}, fmt.Errorf("%w: weights %s", domain.ErrDataNotFound, id)
}
func (m *mockWeightsRepo) GetActive(ctx context.Context) (weights.ScoringWeights, error) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == uuid.Nil {
		return weights.ScoringWeights{}, fmt.Errorf("%w: no active weights", domain.ErrDataNotFound)
	}
	return m.GetByID(ctx, active)
}
func (m *mockWeightsRepo) Create(_ context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	m.items = append(m.items, w)
	return w, nil
}
func (m *mockWeightsRepo) Upsert(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	return m.Create(ctx, w)
}
func (m *mockWeightsRepo) Activate(_ context.Context, id uuid.UUID, expected *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expected != nil && *expected != m.active {
		return domain.ErrActivationConflict
	}
	m.active = id
	return nil
}

type mockModelRepo struct {
	mu    sync.Mutex
	model *cluster.Model
	saved int
}

func (m *mockModelRepo) GetActive(context.Context) (*cluster.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return nil, domain.ErrDataNotFound
	}
	return m.model, nil
}
func (m *mockModelRepo) SaveAndActivate(_ context.Context, model *cluster.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved++
	model.Version = m.saved
	model.Active = true
	m.model = model
	return nil
}

type mockVocabRepo struct {
	mu    sync.Mutex
	vocab *feature.Vocabulary
	saved int
}

func (m *mockVocabRepo) GetActive(context.Context) (*feature.Vocabulary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vocab == nil {
		return nil, domain.ErrDataNotFound
	}
	return m.vocab, nil
}
func (m *mockVocabRepo) SaveAndActivate(_ context.Context, v *feature.Vocabulary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved++
	v.ID = uuid.New()
	v.Version = m.saved
	v.Active = true
	m.vocab = v
	return nil
}

// mockRecRepo reproduces the locking and staleness rules of the Postgres store.
type mockRecRepo struct {
	mu     sync.Mutex
	rows   map[[2]uuid.UUID]recommendation.Recommendation
	audits []recommendation.Audit
	failOn map[uuid.UUID]error
}

func newMockRecRepo() *mockRecRepo {
	return &mockRecRepo{rows: make(map[[2]uuid.UUID]recommendation.Recommendation), failOn: map[uuid.UUID]error{}}
}

func (m *mockRecRepo) Get(_ context.Context, candidateID, jobID uuid.UUID) (recommendation.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[[2]uuid.UUID{candidateID, jobID}]
	if !ok {
		return recommendation.Recommendation{}, domain.ErrDataNotFound
	}
	return r, nil
}

func (m *mockRecRepo) Save(_ context.Context, rec recommendation.Recommendation, decide repository.DecideFunc) (recommendation.SaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[rec.JobID]; err != nil {
		return "", err
	}
	key := [2]uuid.UUID{rec.CandidateID, rec.JobID}
	var prev *recommendation.Recommendation
	if p, ok := m.rows[key]; ok {
		prev = &p
	}
	if prev != nil && prev.ComputedAt.After(rec.ComputedAt) {
		return recommendation.OutcomeStale, nil
	}
	outcome := recommendation.OutcomeInserted
	if prev != nil {
		outcome = recommendation.OutcomeUpdated
	}
	if decide != nil {
		if a := decide(prev); a != nil {
			m.audits = append(m.audits, *a)
			outcome = recommendation.OutcomeAudited
		}
	}
	m.rows[key] = rec
	return outcome, nil
}

func (m *mockRecRepo) ListForCandidate(_ context.Context, candidateID uuid.UUID, f repository.ListFilter) ([]repository.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Listing, 0)
	for k, r := range m.rows {
		if k[0] == candidateID && r.OverallScore >= f.MinScore {
			out = append(out, repository.Listing{Recommendation: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OverallScore > out[j].OverallScore })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockRecRepo) ListForJob(_ context.Context, jobID uuid.UUID, f repository.ListFilter) ([]repository.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Listing, 0)
	for k, r := range m.rows {
		if k[1] == jobID && r.OverallScore >= f.MinScore {
			out = append(out, repository.Listing{Recommendation: r})
		}
	}
	return out, nil
}

func (m *mockRecRepo) ListAudits(_ context.Context, candidateID, jobID uuid.UUID) ([]recommendation.Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recommendation.Audit, 0)
	for _, a := range m.audits {
		if a.CandidateID == candidateID && a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]repository.RecomputeRun
}

func (m *mockRunRepo) Start(_ context.Context, kind string, subject *uuid.UUID) (repository.RecomputeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[uuid.UUID]repository.RecomputeRun)
	}
	r := repository.RecomputeRun{ID: uuid.New(), Kind: kind, SubjectID: subject, Status: repository.RunRunning, StartedAt: time.Now()}
	m.runs[r.ID] = r
	return r, nil
}
func (m *mockRunRepo) Finish(_ context.Context, run repository.RecomputeRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}
func (m *mockRunRepo) Get(_ context.Context, id uuid.UUID) (repository.RecomputeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return repository.RecomputeRun{}, domain.ErrDataNotFound
	}
	return r, nil
}

type fixedEmployability float64

func (f fixedEmployability) Score(context.Context, uuid.UUID) float64 { return float64(f) }
