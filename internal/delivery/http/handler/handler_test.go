package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/domain"
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/domain/weights"
	"skill-match/internal/pipeline"
	"skill-match/internal/pkg/jwt"
	"skill-match/internal/pkg/response"
	"skill-match/internal/repository"
	"skill-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool                `json:"success"`
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
}

type mockRecommendations struct {
	cand       candidate.Candidate
	candErr    error
	items      []usecase.Ranked
	lastParams usecase.Params
	runs       map[uuid.UUID]repository.RecomputeRun
	failed     []uuid.UUID
}

func (m *mockRecommendations) CandidateByUser(_ context.Context, userID uuid.UUID) (candidate.Candidate, error) {
	if m.candErr != nil {
		return candidate.Candidate{}, m.candErr
	}
	if m.cand.UserID != userID {
		return candidate.Candidate{}, domain.ErrDataNotFound
	}
	return m.cand, nil
}

func (m *mockRecommendations) ListForCandidate(_ context.Context, _ candidate.Candidate, p usecase.Params) ([]usecase.Ranked, error) {
	m.lastParams = p
	return m.items, nil
}

func (m *mockRecommendations) RecommendForCandidate(_ context.Context, _ uuid.UUID, p usecase.Params) ([]usecase.Ranked, error) {
	m.lastParams = p
	return m.items, nil
}

func (m *mockRecommendations) ScorePair(_ context.Context, candidateID, jobID uuid.UUID, persist bool) (usecase.Ranked, error) {
	if persist {
		return usecase.Ranked{}, errors.New("breakdown must not persist")
	}
	return usecase.Ranked{Recommendation: recommendation.Recommendation{CandidateID: candidateID, JobID: jobID, OverallScore: 61.5}}, nil
}

func (m *mockRecommendations) RecommendForJob(_ context.Context, _ uuid.UUID, _ []uuid.UUID, p usecase.Params) ([]usecase.Ranked, error) {
	m.lastParams = p
	return m.items, nil
}

func (m *mockRecommendations) ListForJob(_ context.Context, _ uuid.UUID, p usecase.Params) ([]usecase.Ranked, error) {
	m.lastParams = p
	return m.items[:1], nil
}

func (m *mockRecommendations) StartRun(_ context.Context, req usecase.BatchRequest) (repository.RecomputeRun, error) {
	run := repository.RecomputeRun{ID: uuid.New(), Kind: string(req.Kind), Status: repository.RunRunning}
	if m.runs == nil {
		m.runs = map[uuid.UUID]repository.RecomputeRun{}
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *mockRecommendations) FailRun(_ context.Context, run repository.RecomputeRun, _ error) error {
	m.failed = append(m.failed, run.ID)
	return nil
}

func (m *mockRecommendations) Run(_ context.Context, id uuid.UUID) (repository.RecomputeRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return repository.RecomputeRun{}, domain.ErrDataNotFound
	}
	return run, nil
}

type mockQueue struct {
	err    error
	events []pipeline.Event
}

func (q *mockQueue) Enqueue(e pipeline.Event) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	if q.err != nil {
		return false, q.err
	}
	q.events = append(q.events, e)
	return true, nil
}

type mockClusters struct{ model *cluster.Model }

func (m *mockClusters) Active(context.Context) (*cluster.Model, error) {
	if m.model == nil {
		return nil, domain.ErrDataNotFound
	}
	return m.model, nil
}

func (m *mockClusters) Retrain(_ context.Context, force bool) (usecase.TrainResult, error) {
	if !force {
		return usecase.TrainResult{Skipped: true, Reason: "fresh"}, nil
	}
	return usecase.TrainResult{}, domain.ErrInsufficientData
}

type mockVocabulary struct{}

func (mockVocabulary) Refit(context.Context, bool) (usecase.RefitResult, error) {
	return usecase.RefitResult{Version: 3, Terms: 120, Documents: 40}, nil
}

type mockWeights struct {
	items  []weights.ScoringWeights
	active uuid.UUID
}

func (m *mockWeights) List(context.Context) ([]weights.ScoringWeights, error) { return m.items, nil }

func (m *mockWeights) Create(_ context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	if err := w.Validate(); err != nil {
		return weights.ScoringWeights{}, err
	}
	w.ID = uuid.New()
	m.items = append(m.items, w)
	return w, nil
}

func (m *mockWeights) Activate(_ context.Context, id uuid.UUID, expected *uuid.UUID) (weights.ScoringWeights, error) {
	if expected != nil && *expected != m.active {
		return weights.ScoringWeights{}, domain.ErrActivationConflict
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.active = id
			m.items[i].Active = true
			return m.items[i], nil
		}
	}
	return weights.ScoringWeights{}, domain.ErrDataNotFound
}

type mockCache struct{ cleared []uuid.UUID }

func (m *mockCache) UserKeys(_ context.Context, userID uuid.UUID) ([]string, error) {
	return []string{"recs:" + userID.String() + ":abc"}, nil
}

func (m *mockCache) InvalidateUserNow(_ context.Context, userID uuid.UUID) error {
	m.cleared = append(m.cleared, userID)
	return nil
}

func (m *mockCache) InvalidateAllNow(context.Context) error { return nil }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app     *fiber.App
	jwt     *jwt.HMACService
	recs    *mockRecommendations
	queue   *mockQueue
	weights *mockWeights
	cache   *mockCache
	user    uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		jwt:     jwt.NewHMACService("test-secret", "skill-match"),
		queue:   &mockQueue{},
		weights: &mockWeights{},
		cache:   &mockCache{},
		user:    uuid.New(),
	}
	s.recs = &mockRecommendations{
		cand: candidate.Candidate{ID: uuid.New(), UserID: s.user},
		items: []usecase.Ranked{
			{Recommendation: recommendation.Recommendation{ID: uuid.New(), JobID: uuid.New(), OverallScore: 82}, JobTitle: "Go Engineer"},
			{Recommendation: recommendation.Recommendation{ID: uuid.New(), JobID: uuid.New(), OverallScore: 64}, JobTitle: "SRE"},
		},
	}

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	NewHealthHandler(pingFunc(func(context.Context) error { return nil }), pingFunc(func(context.Context) error {
		return errors.New("redis down")
	})).RegisterRoutes(app)

	auth := middleware.NewAuthMiddleware(s.jwt)
	api := app.Group("/api/v1", auth.Middleware())
	NewRecommendationHandler(s.recs).RegisterRoutes(api)

	admin := api.Group("/admin", middleware.RequireRole(jwt.RoleAdmin))
	NewAdminRecomputeHandler(s.recs, s.queue).RegisterRoutes(admin)
	NewAdminModelHandler(&mockClusters{}, s.weights, mockVocabulary{}).RegisterRoutes(admin)
	NewAdminOpsHandler(s.cache, s.queue).RegisterRoutes(admin)

	s.app = app
	return s
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := s.jwt.GenerateAccessToken(s.user, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, env
}

func TestAuth_RejectsMissingAndForeignTokens(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/recommendations", "", "")
	if status != fiber.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %+v", status, env.Error)
	}

	other := jwt.NewHMACService("other-secret", "skill-match")
	tok, _ := other.GenerateAccessToken(s.user, jwt.RoleCandidate, time.Hour)
	status, _ = s.do(t, http.MethodGet, "/api/v1/recommendations", tok, "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", status)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/recompute", s.token(t, jwt.RoleCandidate), "")
	if status != fiber.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Fatalf("expected 403 for candidate on admin route, got %d %+v", status, env.Error)
	}
}

func TestRecommendationHandler_List(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/recommendations?limit=5&min_score=40", s.token(t, jwt.RoleCandidate), "")
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d %+v", status, env)
	}
	var list struct {
		Items []struct {
			JobTitle     string  `json:"job_title"`
			OverallScore float64 `json:"overall_score"`
		} `json:"items"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if list.Count != 2 || list.Items[0].JobTitle != "Go Engineer" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if s.recs.lastParams.Limit != 5 || s.recs.lastParams.MinScore == nil || *s.recs.lastParams.MinScore != 40 {
		t.Fatalf("query params not forwarded: %+v", s.recs.lastParams)
	}
}

func TestRecommendationHandler_ValidationAndNotFound(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleCandidate)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "negative limit", method: http.MethodGet, path: "/api/v1/recommendations?limit=-1", status: 400, code: domain.CodeValidation},
		{name: "min score above range", method: http.MethodGet, path: "/api/v1/recommendations?min_score=101", status: 400, code: domain.CodeValidation},
		{name: "generate min score", method: http.MethodPost, path: "/api/v1/recommendations/generate", body: `{"min_score":150}`, status: 400, code: domain.CodeValidation},
		{name: "bad job id", method: http.MethodGet, path: "/api/v1/recommendations/jobs/not-a-uuid", status: 400, code: domain.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, tt.method, tt.path, tok, tt.body)
			if status != tt.status || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("expected %d %s, got %d %+v", tt.status, tt.code, status, env.Error)
			}
		})
	}

	s.recs.candErr = domain.ErrDataNotFound
	status, env := s.do(t, http.MethodGet, "/api/v1/recommendations", tok, "")
	if status != fiber.StatusNotFound || env.Error.Code != domain.CodeDataNotFound {
		t.Fatalf("expected 404 DATA_NOT_FOUND, got %d %+v", status, env.Error)
	}
}

func TestRecommendationHandler_GeneratePersists(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/recommendations/generate", s.token(t, jwt.RoleCandidate), `{"limit":3}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !s.recs.lastParams.Persist || s.recs.lastParams.Limit != 3 {
		t.Fatalf("expected persisted generate with limit 3, got %+v", s.recs.lastParams)
	}

	jobID := uuid.New()
	status, env := s.do(t, http.MethodGet, "/api/v1/recommendations/jobs/"+jobID.String(), s.token(t, jwt.RoleCandidate), "")
	if status != fiber.StatusOK {
		t.Fatalf("breakdown: expected 200, got %d %+v", status, env.Error)
	}
}

func TestAdminRecompute_StartRunAndPoll(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleAdmin)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/recompute", tok, "")
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d %+v", status, env.Error)
	}
	var accepted struct {
		Run    repository.RecomputeRun `json:"run"`
		Queued bool                    `json:"queued"`
	}
	if err := json.Unmarshal(env.Data, &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !accepted.Queued || accepted.Run.ID == uuid.Nil {
		t.Fatalf("unexpected accepted body: %+v", accepted)
	}
	if len(s.queue.events) != 1 || s.queue.events[0].Run == nil || s.queue.events[0].Run.ID != accepted.Run.ID {
		t.Fatalf("event must carry the run: %+v", s.queue.events)
	}

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/recompute/runs/"+accepted.Run.ID.String(), tok, "")
	if status != fiber.StatusOK {
		t.Fatalf("poll: expected 200, got %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/recompute/runs/"+uuid.NewString(), tok, "")
	if status != fiber.StatusNotFound {
		t.Fatalf("unknown run: expected 404, got %d", status)
	}
}

func TestAdminRecompute_QueueFullFailsRun(t *testing.T) {
	s := newTestServer(t)
	s.queue.err = pipeline.ErrQueueFull

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/recompute/jobs/"+uuid.NewString(), s.token(t, jwt.RoleAdmin), "")
	if status != fiber.StatusServiceUnavailable || env.Error.Code != domain.CodeExternalDependencyUnavailable {
		t.Fatalf("expected 503, got %d %+v", status, env.Error)
	}
	if len(s.recs.failed) != 1 {
		t.Fatalf("expected the run to be marked failed, got %v", s.recs.failed)
	}
}

func TestAdminRecompute_JobCandidates(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleAdmin)
	path := "/api/v1/admin/jobs/" + uuid.NewString() + "/candidates"

	_, env := s.do(t, http.MethodGet, path, tok, "")
	var stored struct{ Count int }
	_ = json.Unmarshal(env.Data, &stored)
	if stored.Count != 1 {
		t.Fatalf("stored listing: expected 1 item, got %d", stored.Count)
	}

	_, env = s.do(t, http.MethodGet, path+"?fresh=true&persist=true", tok, "")
	var fresh struct{ Count int }
	_ = json.Unmarshal(env.Data, &fresh)
	if fresh.Count != 2 || !s.recs.lastParams.Persist {
		t.Fatalf("fresh listing: expected 2 persisted items, got %d %+v", fresh.Count, s.recs.lastParams)
	}
}

func TestAdminModel_Weights(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleAdmin)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/weights", tok, `{"name":"skills_heavy","skill_weight":0.6,"content_weight":0.4}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create: expected 201, got %d %+v", status, env.Error)
	}
	var created struct {
		ID     uuid.UUID `json:"id"`
		Active bool      `json:"active"`
	}
	_ = json.Unmarshal(env.Data, &created)
	if created.ID == uuid.Nil || created.Active {
		t.Fatalf("expected inactive profile with id, got %+v", created)
	}

	var knobs struct {
		RequiredSkillShare float64 `json:"required_skill_share"`
		TestPassThreshold  float64 `json:"test_pass_threshold"`
	}
	_ = json.Unmarshal(env.Data, &knobs)
	if knobs.RequiredSkillShare != weights.DefaultRequiredSkillShare || knobs.TestPassThreshold != weights.DefaultTestPassThreshold {
		t.Fatalf("expected omitted knobs to default, got %+v", knobs)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/weights", tok, `{"name":"preferred_only","skill_weight":1,"required_skill_share":0,"test_pass_threshold":0}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create with zero knobs: expected 201, got %d %+v", status, env.Error)
	}
	knobs.RequiredSkillShare, knobs.TestPassThreshold = -1, -1
	_ = json.Unmarshal(env.Data, &knobs)
	if knobs.RequiredSkillShare != 0 || knobs.TestPassThreshold != 0 {
		t.Fatalf("expected explicit zero knobs to be kept, got %+v", knobs)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/weights", tok, `{"name":"broken","skill_weight":-1}`)
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != domain.CodeInvalidWeightsConfig {
		t.Fatalf("invalid weights: expected 422, got %d %+v", status, env.Error)
	}

	stale := uuid.NewString()
	status, env = s.do(t, http.MethodPost, "/api/v1/admin/weights/"+created.ID.String()+"/activate", tok, `{"expected_active_id":"`+stale+`"}`)
	if status != fiber.StatusConflict || env.Error.Code != domain.CodeActivationConflict {
		t.Fatalf("stale activation: expected 409, got %d %+v", status, env.Error)
	}

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/weights/"+created.ID.String()+"/activate", tok, "")
	if status != fiber.StatusOK || s.weights.active != created.ID {
		t.Fatalf("activation: expected 200 and active %s, got %d %s", created.ID, status, s.weights.active)
	}
}

func TestAdminModel_ClusterAndVocabulary(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleAdmin)

	status, _ := s.do(t, http.MethodGet, "/api/v1/admin/cluster-model", tok, "")
	if status != fiber.StatusNotFound {
		t.Fatalf("no model: expected 404, got %d", status)
	}

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/cluster-model/retrain", tok, "")
	if status != fiber.StatusOK {
		t.Fatalf("retrain skip: expected 200, got %d", status)
	}
	var skipped struct{ Skipped bool }
	_ = json.Unmarshal(env.Data, &skipped)
	if !skipped.Skipped {
		t.Fatalf("expected skipped retrain")
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/cluster-model/retrain?force=true", tok, "")
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != domain.CodeInsufficientData {
		t.Fatalf("forced retrain: expected 422, got %d %+v", status, env.Error)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/vocabulary/refit", tok, "")
	var refit usecase.RefitResult
	_ = json.Unmarshal(env.Data, &refit)
	if status != fiber.StatusOK || refit.Version != 3 {
		t.Fatalf("refit: expected version 3, got %d %+v", status, refit)
	}
}

func TestAdminOps_EventsAndCache(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, jwt.RoleAdmin)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/events/jobs/"+uuid.NewString(), tok, "")
	if status != fiber.StatusAccepted {
		t.Fatalf("job event: expected 202, got %d %+v", status, env.Error)
	}

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/events/tests", tok, `{"candidate_id":"`+uuid.NewString()+`"}`)
	if status != fiber.StatusBadRequest || env.Error.Code != domain.CodeValidation {
		t.Fatalf("test event without skill: expected 400, got %d %+v", status, env.Error)
	}
	if len(s.queue.events) != 1 {
		t.Fatalf("expected only the valid event queued, got %d", len(s.queue.events))
	}

	user := uuid.New()
	status, env = s.do(t, http.MethodGet, "/api/v1/admin/cache/users/"+user.String(), tok, "")
	var keys struct {
		Keys []string `json:"keys"`
	}
	_ = json.Unmarshal(env.Data, &keys)
	if status != fiber.StatusOK || len(keys.Keys) != 1 {
		t.Fatalf("cache keys: got %d %+v", status, keys)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/v1/admin/cache/users/"+user.String(), tok, "")
	if status != fiber.StatusOK || len(s.cache.cleared) != 1 || s.cache.cleared[0] != user {
		t.Fatalf("invalidate user: got %d %v", status, s.cache.cleared)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/health/ready", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 with degraded cache, got %d", status)
	}
	var checks map[string]string
	_ = json.Unmarshal(env.Data, &checks)
	if checks["cache"] != "degraded" || checks["database"] != "up" {
		t.Fatalf("unexpected checks: %v", checks)
	}

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("conn refused") }), nil).RegisterRoutes(app)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("database down: expected 503, got %d", resp.StatusCode)
	}
}
