package migration

import (
	"testing"
	"testing/fstest"

	"skill-match/migrations"
)

func TestLoad_OrdersAndFilters(t *testing.T) {
	src := fstest.MapFS{
		"V2__second.sql": {Data: []byte("SELECT 2;")},
		"V1__first.sql":  {Data: []byte("  SELECT 1;\n")},
		"README.md":      {Data: []byte("ignored")},
	}

	migs, err := Load(src)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(migs) != 2 || migs[0].Version != 1 || migs[1].Name != "second" {
		t.Fatalf("unexpected migrations %+v", migs)
	}
	if migs[0].SQL != "SELECT 1;" || migs[0].Checksum == "" {
		t.Fatalf("expected trimmed sql with checksum")
	}
}

func TestLoad_Rejects(t *testing.T) {
	if _, err := Load(fstest.MapFS{"V1__a.sql": {Data: []byte("x")}, "V01__b.sql": {Data: []byte("y")}}); err == nil {
		t.Fatalf("expected duplicate version error")
	}
	if _, err := Load(fstest.MapFS{"V1__a.sql": {Data: []byte("  ")}}); err == nil {
		t.Fatalf("expected empty file error")
	}
}

func TestLoad_EmbeddedMigrations(t *testing.T) {
	migs, err := Load(migrations.Files)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(migs) < 2 || migs[0].Version != 1 {
		t.Fatalf("expected shipped migrations, got %d", len(migs))
	}
}
