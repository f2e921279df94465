package seeder

import (
	"context"
	"fmt"
	"time"

	"skill-match/internal/database"
	"skill-match/internal/pkg/logger"

	"go.uber.org/zap"
)

type Runner struct {
	Seeders []Seeder
	Log     *zap.Logger
}

func (r Runner) Run(ctx context.Context, db database.DB) error {
	if db == nil {
		return errNilDB
	}
	log := logger.OrNop(r.Log)
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Run(ctx, db); err != nil {
			log.Error("seeder failed", zap.String("seeder", s.Name()), zap.Error(err))
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		log.Info("seeder applied", zap.String("seeder", s.Name()), zap.Duration("duration", time.Since(start)))
	}
	return nil
}
