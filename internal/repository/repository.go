package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skill-match/internal/database"
	"skill-match/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both database.DB and database.Tx.
type querier interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (database.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) database.Row
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s", domain.ErrDataNotFound, what, id)
}

// activate flips the active row of table to id inside tx. The transaction-scoped advisory lock
// serialises concurrent activations; the partial unique index on active rejects anything else.
// When expected is set, the currently active id must match it.
func activate(ctx context.Context, tx database.Tx, table string, id uuid.UUID, expected *uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "activate:"+table); err != nil {
		return err
	}

	var current uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM `+table+` WHERE active`).Scan(&current)
	if err != nil && !isNoRows(err) {
		return err
	}
	if expected != nil && current != *expected {
		return fmt.Errorf("%w: %s active is %s, expected %s", domain.ErrActivationConflict, table, current, *expected)
	}
	if current == id {
		return nil
	}

	if _, err := tx.Exec(ctx, `UPDATE `+table+` SET active = false WHERE active`); err != nil {
		return err
	}
	n, err := tx.Exec(ctx, `UPDATE `+table+` SET active = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(table, id)
	}
	return nil
}

func collect[T any](rows database.Rows, scan func(database.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
