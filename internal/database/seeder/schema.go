package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skill-match/internal/database"
)

var errNilDB = errors.New("seeder: nil db")

// SchemaMismatchError lists the columns a seeder needs that the table does not have, which
// means migrations have not run or are out of date.
type SchemaMismatchError struct {
	Table   string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: %s is missing %s (run migrations first)", e.Table, strings.Join(e.Missing, ", "))
}

// RequireColumns checks table in the current schema for every listed column.
func RequireColumns(ctx context.Context, db database.DB, table string, columns ...string) error {
	if db == nil {
		return errNilDB
	}
	if strings.TrimSpace(table) == "" || len(columns) == 0 {
		return fmt.Errorf("seeder: table and columns are required")
	}

	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		existing[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	var missing []string
	for _, col := range columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{Table: table, Missing: missing}
	}
	return nil
}
