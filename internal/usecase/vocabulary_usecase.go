package usecase

import (
	"context"
	"sync"
	"time"

	"skill-match/internal/domain/feature"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"

	"go.uber.org/zap"
)

type RefitResult struct {
	Version   int  `json:"version"`
	Terms     int  `json:"terms"`
	Documents int  `json:"documents"`
	Skipped   bool `json:"skipped"`
}

type VocabularyUsecase struct {
	jobs  repository.JobRepository
	vocab repository.VocabularyRepository
	state *ActiveState
	cfg   feature.VectorizerConfig
	log   *zap.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewVocabularyUsecase(jobs repository.JobRepository, vocab repository.VocabularyRepository, state *ActiveState, cfg feature.VectorizerConfig, log *zap.Logger) *VocabularyUsecase {
	return &VocabularyUsecase{jobs: jobs, vocab: vocab, state: state, cfg: cfg, log: logger.OrNop(log), now: time.Now}
}

// Refit fits a vocabulary over the open jobs. Without force it is a no-op when the corpus
// is unchanged since the active vocabulary was fitted.
func (u *VocabularyUsecase) Refit(ctx context.Context, force bool) (RefitResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := u.now()
	jobs, err := u.jobs.ListEligible(ctx, start.UTC())
	if err != nil {
		return RefitResult{}, err
	}
	docs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		docs = append(docs, feature.JobDocument(j))
	}

	snap, err := u.state.Current(ctx)
	if err != nil {
		return RefitResult{}, err
	}
	if !force && snap.Vocabulary != nil && snap.Vocabulary.CorpusFingerprint == feature.CorpusFingerprint(docs, u.cfg) {
		return RefitResult{
			Version:   snap.Vocabulary.Version,
			Terms:     snap.Vocabulary.Len(),
			Documents: snap.Vocabulary.DocumentCount,
			Skipped:   true,
		}, nil
	}

	v, err := feature.FitVocabulary(docs, u.cfg)
	if err != nil {
		return RefitResult{}, err
	}
	v.FittedAt = u.now().UTC()
	if err := u.vocab.SaveAndActivate(ctx, v); err != nil {
		return RefitResult{}, err
	}
	if _, err := u.state.Refresh(ctx); err != nil {
		return RefitResult{}, err
	}

	u.log.Info("vocabulary refitted",
		zap.Int("version", v.Version),
		zap.Int("terms", v.Len()),
		zap.Int("documents", v.DocumentCount),
		zap.Duration("duration", u.now().Sub(start)),
	)
	return RefitResult{Version: v.Version, Terms: v.Len(), Documents: v.DocumentCount}, nil
}
