package repository

import (
	"context"
	"fmt"
	"time"

	"skill-match/internal/database"
	"skill-match/internal/domain"
	"skill-match/internal/domain/feature"

	"github.com/google/uuid"
)

type VocabularyRepository interface {
	GetActive(ctx context.Context) (*feature.Vocabulary, error)
	// SaveAndActivate assigns the next version, stores v and activates it in one transaction.
	SaveAndActivate(ctx context.Context, v *feature.Vocabulary) error
}

type PostgresVocabularyRepository struct {
	db database.DB
}

func NewPostgresVocabularyRepository(db database.DB) *PostgresVocabularyRepository {
	return &PostgresVocabularyRepository{db: db}
}

func (r *PostgresVocabularyRepository) GetActive(ctx context.Context) (*feature.Vocabulary, error) {
	var (
		id                                 uuid.UUID
		version, docCount, minDF, maxFeats int32
		terms                              []string
		idf                                []float64
		fingerprint                        string
		maxDF                              float64
		fittedAt                           time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, version, terms, idf, document_count, corpus_fingerprint, min_df, max_df, max_features, fitted_at
		 FROM tfidf_vocabularies WHERE active`,
	).Scan(&id, &version, &terms, &idf, &docCount, &fingerprint, &minDF, &maxDF, &maxFeats, &fittedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: no active vocabulary", domain.ErrDataNotFound)
		}
		return nil, err
	}

	v, err := feature.NewVocabulary(terms, idf)
	if err != nil {
		return nil, err
	}
	v.ID = id
	v.Version = int(version)
	v.DocumentCount = int(docCount)
	v.CorpusFingerprint = fingerprint
	v.Config = feature.VectorizerConfig{MinDF: int(minDF), MaxDF: maxDF, MaxFeatures: int(maxFeats)}
	v.FittedAt = fittedAt
	v.Active = true
	return v, nil
}

func (r *PostgresVocabularyRepository) SaveAndActivate(ctx context.Context, v *feature.Vocabulary) error {
	if v == nil {
		return fmt.Errorf("%w: nil vocabulary", domain.ErrValidation)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		// versions are assigned under the same lock that guards activation
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "activate:tfidf_vocabularies"); err != nil {
			return err
		}
		var version int32
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM tfidf_vocabularies`).Scan(&version); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO tfidf_vocabularies (id, version, terms, idf, document_count, corpus_fingerprint,
				min_df, max_df, max_features, fitted_at, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)`,
			v.ID, version, v.Terms, v.IDF, v.DocumentCount, v.CorpusFingerprint,
			v.Config.MinDF, v.Config.MaxDF, v.Config.MaxFeatures, v.FittedAt,
		); err != nil {
			return err
		}

		if err := activate(ctx, tx, "tfidf_vocabularies", v.ID, nil); err != nil {
			return err
		}
		v.Version = int(version)
		v.Active = true
		return nil
	})
}
