package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"skill-match/internal/app"
	"skill-match/internal/config"
	"skill-match/internal/database"
	"skill-match/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recommendationItem struct {
	ID           *uuid.UUID `json:"id"`
	JobID        uuid.UUID  `json:"job_id"`
	JobTitle     string     `json:"job_title"`
	OverallScore float64    `json:"overall_score"`
	Scores       struct {
		SkillMatch float64 `json:"skill_match"`
	} `json:"scores"`
	Outcome string `json:"outcome"`
}

type recommendationList struct {
	Items []recommendationItem `json:"items"`
	Count int                  `json:"count"`
}

func TestIntegration_GenerateAndListRecommendations(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := testConfig(t)
	c, err := app.NewContainer(cfg, nil)
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := c.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	seed := seedDummyData(t, ctx, c.DB)
	defer cleanupSeed(t, ctx, c.DB, seed)

	a := app.New(c)
	tok, err := c.JWT.GenerateAccessToken(seed.userID, jwt.RoleCandidate, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	generated := call(t, a.Fiber, "POST", "/api/v1/recommendations/generate", tok, `{"limit":50}`)
	if generated.Count == 0 {
		t.Fatalf("generate: expected recommendations")
	}
	assertNoDuplicateJobs(t, generated.Items)
	assertSortedByScoreDesc(t, generated.Items)

	goJob := findJob(generated.Items, seed.goJobID)
	frontJob := findJob(generated.Items, seed.frontendJobID)
	if goJob == nil || frontJob == nil {
		t.Fatalf("generate: expected both seeded jobs, got %+v", generated.Items)
	}
	if goJob.OverallScore <= frontJob.OverallScore {
		t.Fatalf("generate: Go job should outrank frontend job: %.2f <= %.2f", goJob.OverallScore, frontJob.OverallScore)
	}
	if goJob.Scores.SkillMatch <= 0 || goJob.Scores.SkillMatch > 100 {
		t.Fatalf("generate: skill_match out of range: %.2f", goJob.Scores.SkillMatch)
	}

	listed := call(t, a.Fiber, "GET", "/api/v1/recommendations?limit=50", tok, "")
	stored := findJob(listed.Items, seed.goJobID)
	if stored == nil || stored.ID == nil {
		t.Fatalf("list: expected persisted recommendation for Go job")
	}

	again := call(t, a.Fiber, "POST", "/api/v1/recommendations/generate", tok, `{"limit":50}`)
	if r := findJob(again.Items, seed.goJobID); r == nil || r.Outcome == "inserted" {
		t.Fatalf("regenerate: expected an update of the stored row, got %+v", r)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	host := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := stringsOrDefault(os.Getenv("SKILLMATCH_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"))

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set SKILLMATCH_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}
	if ssl == "" {
		ssl = "disable"
	}

	return config.Config{
		App: config.AppConfig{AppName: "skill-match", Environment: "test", HTTPPort: "0", MigrationsDir: resolveMigrationsDir(t)},
		Database: config.DatabaseConfig{
			DBHost:     host,
			DBPort:     port,
			DBName:     name,
			DBUser:     user,
			DBPassword: pass,
			DBSSLMode:  ssl,
		},
		// unreachable on purpose: the in-memory store takes over
		Redis: config.RedisConfig{Host: "127.0.0.1", Port: "1", TTL: time.Minute},
		JWT:   config.JWTConfig{AccessSecret: "test-access-secret", Issuer: "skill-match-test"},
		Engine: config.EngineConfig{
			AuditThresholdPoints: 5,
			DefaultLimit:         20,
			MaxLimit:             100,
			TFIDFMinDF:           1,
			TFIDFMaxDF:           1,
			TFIDFMaxFeatures:     1000,
			ScoringParallelism:   4,
			ActiveStateTTL:       time.Second,
		},
		Scheduler: config.SchedulerConfig{Workers: 1, QueueSize: 8},
	}
}

func resolveMigrationsDir(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve migrations dir: runtime.Caller failed")
	}

	// this file: internal/integration/recommendation_flow_test.go
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	migDir := filepath.Join(root, "migrations")

	files, _ := filepath.Glob(filepath.Join(migDir, "V*__*.sql"))
	if len(files) == 0 {
		t.Fatalf("resolve migrations dir: no migration files found in %s", migDir)
	}
	return migDir
}

type seededIDs struct {
	userID        uuid.UUID
	candidateID   uuid.UUID
	goJobID       uuid.UUID
	frontendJobID uuid.UUID
}

func seedDummyData(t *testing.T, ctx context.Context, db database.DB) seededIDs {
	t.Helper()

	out := seededIDs{userID: uuid.New()}

	skill := func(name string) uuid.UUID {
		var id uuid.UUID
		if err := db.QueryRow(ctx, `SELECT id FROM skills WHERE name = $1`, name).Scan(&id); err != nil {
			t.Fatalf("lookup skill %s: %v", name, err)
		}
		return id
	}
	goID, pgID, dockerID, reactID := skill("Go"), skill("PostgreSQL"), skill("Docker"), skill("React")

	err := db.QueryRow(ctx,
		`INSERT INTO candidates (user_id, location, remote_preference, years_experience, bio)
		 VALUES ($1, 'Jakarta', 'flexible', 4, 'Backend engineer building Go services on PostgreSQL')
		 RETURNING id`, out.userID).Scan(&out.candidateID)
	if err != nil {
		t.Fatalf("insert candidate: %v", err)
	}
	for skillID, level := range map[uuid.UUID]int{goID: 5, pgID: 4} {
		if _, err := db.Exec(ctx, `INSERT INTO candidate_skills (candidate_id, skill_id, proficiency_level) VALUES ($1, $2, $3)`,
			out.candidateID, skillID, level); err != nil {
			t.Fatalf("insert candidate skill: %v", err)
		}
	}

	job := func(title, location, description string, skills map[uuid.UUID]bool) uuid.UUID {
		var id uuid.UUID
		err := db.QueryRow(ctx,
			`INSERT INTO jobs (title, company, location, seniority, status, description)
			 VALUES ($1, 'IT Co', $2, 'mid', 'active', $3) RETURNING id`, title, location, description).Scan(&id)
		if err != nil {
			t.Fatalf("insert job: %v", err)
		}
		for skillID, required := range skills {
			if _, err := db.Exec(ctx, `INSERT INTO job_skills (job_id, skill_id, is_required) VALUES ($1, $2, $3)`,
				id, skillID, required); err != nil {
				t.Fatalf("insert job skill: %v", err)
			}
		}
		return id
	}
	out.goJobID = job("Backend Engineer (Go) - IT", "Jakarta", "Build Go services backed by PostgreSQL and Docker",
		map[uuid.UUID]bool{goID: true, pgID: true, dockerID: false})
	out.frontendJobID = job("Frontend Engineer - IT", "Surabaya", "Ship React interfaces",
		map[uuid.UUID]bool{reactID: true})

	return out
}

func cleanupSeed(t *testing.T, ctx context.Context, db database.DB, seed seededIDs) {
	t.Helper()

	_, _ = db.Exec(ctx, `DELETE FROM recommendation_audits WHERE candidate_id = $1`, seed.candidateID)
	_, _ = db.Exec(ctx, `DELETE FROM jobs WHERE id = $1 OR id = $2`, seed.goJobID, seed.frontendJobID)
	_, _ = db.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, seed.candidateID)
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) recommendationList {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	if env.Status != 200 || !env.Success {
		t.Fatalf("%s %s: expected 200, got %d (message=%s)", method, path, env.Status, env.Message)
	}

	var list recommendationList
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("%s %s: data unmarshal: %v", method, path, err)
	}
	return list
}

func findJob(items []recommendationItem, jobID uuid.UUID) *recommendationItem {
	for i := range items {
		if items[i].JobID == jobID {
			return &items[i]
		}
	}
	return nil
}

func assertSortedByScoreDesc(t *testing.T, items []recommendationItem) {
	t.Helper()

	for i := 1; i < len(items); i++ {
		if items[i].OverallScore > items[i-1].OverallScore {
			t.Fatalf("expected overall_score descending at idx=%d: prev=%.2f cur=%.2f", i, items[i-1].OverallScore, items[i].OverallScore)
		}
	}
}

func assertNoDuplicateJobs(t *testing.T, items []recommendationItem) {
	t.Helper()

	seen := map[uuid.UUID]struct{}{}
	for i, it := range items {
		if it.JobID == uuid.Nil {
			t.Fatalf("idx=%d has nil job_id", i)
		}
		if _, ok := seen[it.JobID]; ok {
			t.Fatalf("duplicate job_id=%s", it.JobID)
		}
		seen[it.JobID] = struct{}{}
	}
}

func stringsOrDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
