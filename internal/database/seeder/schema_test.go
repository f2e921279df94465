package seeder

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"skill-match/internal/database"

	"go.uber.org/zap"
)

type columnRows struct {
	cols []string
	i    int
}

func (r *columnRows) Close()     {}
func (r *columnRows) Next() bool { r.i++; return r.i <= len(r.cols) }
func (r *columnRows) Err() error { return nil }
func (r *columnRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.cols[r.i-1]
	return nil
}

// columnsDB answers information_schema queries from a fixed table layout.
type columnsDB struct {
	tables  map[string][]string
	queried []string
}

func (d *columnsDB) Ping(context.Context) error { return nil }
func (d *columnsDB) Close() error               { return nil }
func (d *columnsDB) Exec(context.Context, string, ...any) (int64, error) {
	return 0, errors.New("not supported")
}
func (d *columnsDB) Query(_ context.Context, _ string, args ...any) (database.Rows, error) {
	table := args[0].(string)
	d.queried = append(d.queried, table)
	return &columnRows{cols: d.tables[table]}, nil
}
func (d *columnsDB) QueryRow(context.Context, string, ...any) database.Row { return nil }
func (d *columnsDB) Begin(context.Context) (database.Tx, error) {
	return nil, errors.New("not supported")
}
func (d *columnsDB) SQLDB() *sql.DB { return nil }

func TestRequireColumns(t *testing.T) {
	db := &columnsDB{tables: map[string][]string{"skills": {"id", "name", "category"}}}
	ctx := context.Background()

	if err := RequireColumns(ctx, db, "skills", "id", "name"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	err := RequireColumns(ctx, db, "skills", "id", "synonyms", "created_at")
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if mismatch.Table != "skills" || !reflect.DeepEqual(mismatch.Missing, []string{"synonyms", "created_at"}) {
		t.Fatalf("unexpected mismatch %+v", mismatch)
	}

	if err := RequireColumns(ctx, nil, "skills", "id"); !errors.Is(err, errNilDB) {
		t.Fatalf("expected nil db error, got %v", err)
	}
	if err := RequireColumns(ctx, db, " ", "id"); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestRunner_StopsOnSchemaMismatch(t *testing.T) {
	db := &columnsDB{tables: map[string][]string{}}
	err := Runner{Seeders: Defaults(), Log: zap.NewNop()}.Run(context.Background(), db)

	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) || mismatch.Table != "skills" {
		t.Fatalf("expected skills seeder to report missing columns, got %v", err)
	}
	if !reflect.DeepEqual(db.queried, []string{"skills"}) {
		t.Fatalf("expected runner to stop after first failure, queried %v", db.queried)
	}
}
