package app

import (
	"context"
	"errors"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/database/migration"
	dbpostgres "skill-match/internal/database/postgres"
	"skill-match/internal/database/seeder"
	"skill-match/internal/domain/feature"
	"skill-match/internal/infrastructure/cache"
	"skill-match/internal/infrastructure/employability"
	"skill-match/internal/pipeline"
	"skill-match/internal/pkg/jwt"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"
	"skill-match/internal/usecase"
	"skill-match/migrations"

	"go.uber.org/zap"
)

// Container owns every long-lived dependency shared by the HTTP server and the engine CLI.
type Container struct {
	Config config.Config
	Log    *zap.Logger
	DB     *dbpostgres.Pool
	Cache  cache.Store
	JWT    *jwt.HMACService

	State           *usecase.ActiveState
	Invalidator     *usecase.CacheInvalidator
	Recommendations *usecase.RecommendationUsecase
	Clusters        *usecase.ClusterUsecase
	Vocabulary      *usecase.VocabularyUsecase
	Weights         *usecase.WeightsUsecase
	Scheduler       *pipeline.Scheduler
}

func NewContainer(cfg config.Config, log *zap.Logger) (*Container, error) {
	log = logger.OrNop(log)
	if !cfg.Database.Configured() {
		return nil, errors.New("database is not configured: set DB_HOST and DB_NAME")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	store := cache.New(cfg.Redis, log)

	skills := repository.NewPostgresSkillRepository(db)
	candidates := repository.NewPostgresCandidateRepository(db)
	jobs := repository.NewPostgresJobRepository(db)
	tests := repository.NewPostgresTestRepository(db)
	dismissals := repository.NewPostgresDismissalRepository(db)
	recs := repository.NewPostgresRecommendationRepository(db)
	runs := repository.NewPostgresRecomputeRunRepository(db)
	weightsRepo := repository.NewPostgresWeightsRepository(db)
	models := repository.NewPostgresClusterModelRepository(db)
	vocab := repository.NewPostgresVocabularyRepository(db)

	state := usecase.NewActiveState(skills, weightsRepo, models, vocab, cfg.Engine.ActiveStateTTL, log)
	invalidator := usecase.NewCacheInvalidator(store, cfg.Engine.CacheInvalidateTimeout, log)
	provider := employability.NewClient(cfg.Employability, store, log)

	recommendations := usecase.NewRecommendationUsecase(usecase.RecommendationDeps{
		Candidates:    candidates,
		Jobs:          jobs,
		Tests:         tests,
		Dismissals:    dismissals,
		Recs:          recs,
		Runs:          runs,
		State:         state,
		Employability: provider,
		Invalidator:   invalidator,
		Store:         store,
	}, usecase.RecommendationSettings{
		AuditThreshold:  cfg.Engine.AuditThresholdPoints,
		DefaultLimit:    cfg.Engine.DefaultLimit,
		MaxLimit:        cfg.Engine.MaxLimit,
		DefaultMinScore: cfg.Engine.DefaultMinScore,
		Parallelism:     cfg.Engine.ScoringParallelism,
		CacheTTL:        cfg.Redis.TTL,
	}, log)

	clusters := usecase.NewClusterUsecase(candidates, jobs, tests, models, state, provider, usecase.ClusterSettings{
		MinCandidates: cfg.Engine.ClusterMinCandidates,
		MinJobs:       cfg.Engine.ClusterMinJobs,
		KOverride:     cfg.Engine.ClusterKOverride,
		Seed:          cfg.Engine.ClusterSeed,
		Freshness:     cfg.Engine.ModelFreshness,
	}, log)

	vocabulary := usecase.NewVocabularyUsecase(jobs, vocab, state, feature.VectorizerConfig{
		MinDF:       cfg.Engine.TFIDFMinDF,
		MaxDF:       cfg.Engine.TFIDFMaxDF,
		MaxFeatures: cfg.Engine.TFIDFMaxFeatures,
	}, log)

	scheduler := pipeline.NewScheduler(pipeline.SchedulerDeps{
		Recommendations: recommendations,
		Clusters:        clusters,
		Vocabulary:      vocabulary,
		Invalidator:     invalidator,
		Listener:        db,
	}, cfg.Scheduler, log)

	return &Container{
		Config:          cfg,
		Log:             log,
		DB:              db,
		Cache:           store,
		JWT:             jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.Issuer),
		State:           state,
		Invalidator:     invalidator,
		Recommendations: recommendations,
		Clusters:        clusters,
		Vocabulary:      vocabulary,
		Weights:         usecase.NewWeightsUsecase(weightsRepo, state, log),
		Scheduler:       scheduler,
	}, nil
}

// Migrate applies pending migrations; MigrationsDir overrides the embedded files.
func (c *Container) Migrate(ctx context.Context) error {
	r := migration.Runner{Dir: c.Config.App.MigrationsDir, FS: migrations.Files, Log: c.Log}
	return r.Run(ctx, c.DB.SQLDB())
}

func (c *Container) Seed(ctx context.Context) error {
	r := seeder.Runner{Seeders: seeder.Defaults(), Log: c.Log}
	return r.Run(ctx, c.DB)
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Invalidator != nil {
		c.Invalidator.Wait()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
