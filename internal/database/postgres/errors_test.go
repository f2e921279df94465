package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "no rows", err: pgx.ErrNoRows, want: false},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "connection failure state", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, want: true},
		{name: "network", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Transient(tt.err); got != tt.want {
				t.Fatalf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_KeepsOriginalError(t *testing.T) {
	if err := classify(pgx.ErrNoRows); err != pgx.ErrNoRows {
		t.Fatalf("expected no-rows to pass through untouched, got %v", err)
	}

	pgErr := &pgconn.PgError{Code: "40P01"}
	err := classify(pgErr)
	if !domain.IsTransient(err) {
		t.Fatalf("expected deadlock to be transient, got %v", err)
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) || got.Code != "40P01" {
		t.Fatalf("expected wrapped pg error to stay reachable, got %v", err)
	}
	if domain.ErrorCode(err) != domain.CodeExternalDependencyUnavailable {
		t.Fatalf("unexpected code %s", domain.ErrorCode(err))
	}
}

func TestConnect_UnreachableServerIsTransient(t *testing.T) {
	cfg := config.DatabaseConfig{
		DBHost:         "127.0.0.1",
		DBPort:         "1",
		DBUser:         "skillmatch",
		DBName:         "skillmatch",
		DBSSLMode:      "disable",
		ConnectTimeout: 500 * time.Millisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Connect(ctx, cfg, nil)
	if err == nil {
		_ = p.Close()
		t.Skip("something is listening on 127.0.0.1:1")
	}
	if !domain.IsTransient(err) {
		t.Fatalf("expected unreachable database to be transient, got %v", err)
	}
}

func TestPoolConfig_QuotesSettings(t *testing.T) {
	pcfg, err := poolConfig(config.DatabaseConfig{
		DBHost:     "db.internal",
		DBPort:     "6543",
		DBUser:     "app",
		DBPassword: "p@ss word'quote",
		DBName:     "skills",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	cc := pcfg.ConnConfig
	if cc.Host != "db.internal" || cc.Port != 6543 || cc.User != "app" || cc.Database != "skills" {
		t.Fatalf("unexpected conn config %+v", cc.Config)
	}
	if cc.Password != "p@ss word'quote" {
		t.Fatalf("expected password to survive quoting, got %q", cc.Password)
	}
}

func TestNilPool(t *testing.T) {
	var p *Pool
	if err := p.Ping(context.Background()); !domain.IsTransient(err) {
		t.Fatalf("expected transient error from nil pool, got %v", err)
	}
	if err := p.QueryRow(context.Background(), "SELECT 1").Scan(); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected not connected, got %v", err)
	}
}
