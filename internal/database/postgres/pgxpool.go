package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/database"
	"skill-match/internal/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Pool adapts pgxpool to database.DB. Every error it returns goes through classify, so callers
// can retry on domain.IsTransient without knowing about pgconn.
type Pool struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	log   *zap.Logger
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	settings := []struct{ key, value string }{
		{"host", strings.TrimSpace(cfg.DBHost)},
		{"port", strings.TrimSpace(cfg.DBPort)},
		{"user", strings.TrimSpace(cfg.DBUser)},
		{"password", cfg.DBPassword},
		{"dbname", strings.TrimSpace(cfg.DBName)},
		{"sslmode", sslMode(cfg.DBSSLMode)},
	}
	parts := make([]string, 0, len(settings))
	for _, kv := range settings {
		if kv.value != "" {
			parts = append(parts, kv.key+"="+quoteDSN(kv.value))
		}
	}
	dsn := strings.Join(parts, " ")

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.PoolMaxConns > 0 {
		pcfg.MaxConns = cfg.PoolMaxConns
	}
	if cfg.PoolMinConns > 0 {
		pcfg.MinConns = cfg.PoolMinConns
	}
	if cfg.PoolMaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.PoolMaxConnLifetime
	}
	if cfg.PoolMaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	}
	if cfg.PoolHealthCheckPeriod > 0 {
		pcfg.HealthCheckPeriod = cfg.PoolHealthCheckPeriod
	}
	return pcfg, nil
}

// quoteDSN single-quotes a keyword/value setting so spaces and quotes survive parsing.
func quoteDSN(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func sslMode(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "prefer"
	}
	return v
}

// Connect opens the pool and pings it once. An unreachable server yields an error matching
// domain.ErrExternalDependencyUnavailable.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Pool, error) {
	log = logger.OrNop(log)
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(pcfg.ConnConfig.Host, fmt.Sprint(pcfg.ConnConfig.Port))

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, classify(err)
	}

	pingCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		log.Warn("database unreachable", zap.String("addr", addr), zap.Error(err))
		return nil, classify(err)
	}

	log.Info("database connected",
		zap.String("addr", addr),
		zap.String("database", pcfg.ConnConfig.Database),
		zap.Int32("max_conns", pcfg.MaxConns),
	)
	return &Pool{pool: p, sqlDB: stdlib.OpenDBFromPool(p), log: log}, nil
}

func (p *Pool) ready() bool {
	return p != nil && p.pool != nil
}

func (p *Pool) Ping(ctx context.Context) error {
	if !p.ready() {
		return errNotConnected
	}
	return classify(p.pool.Ping(ctx))
}

func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	if p.sqlDB != nil {
		_ = p.sqlDB.Close()
	}
	if p.pool != nil {
		p.pool.Close()
		logger.OrNop(p.log).Info("database pool closed")
	}
	return nil
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if !p.ready() {
		return 0, errNotConnected
	}
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	if !p.ready() {
		return nil, errNotConnected
	}
	r, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return pgxRows{rows: r}, nil
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	if !p.ready() {
		return errRow{err: errNotConnected}
	}
	return pgxRow{row: p.pool.QueryRow(ctx, query, args...)}
}

func (p *Pool) Begin(ctx context.Context) (database.Tx, error) {
	if !p.ready() {
		return nil, errNotConnected
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return pgxTx{tx: tx}, nil
}

// Listen holds one pool connection for LISTEN on channel and calls fn for every payload until
// ctx is done or the connection fails.
func (p *Pool) Listen(ctx context.Context, channel string, fn func(payload string)) error {
	if !p.ready() {
		return errNotConnected
	}
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return classify(err)
	}
	defer conn.Release()

	ident := pgx.Identifier{channel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+ident); err != nil {
		return classify(err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+ident)
	}()
	logger.OrNop(p.log).Info("listening for notifications", zap.String("channel", channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return classify(err)
		}
		fn(n.Payload)
	}
}

func (p *Pool) SQLDB() *sql.DB {
	if p == nil {
		return nil
	}
	return p.sqlDB
}

type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func (t pgxTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	r, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	return pgxRows{rows: r}, nil
}

func (t pgxTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return pgxRow{row: t.tx.QueryRow(ctx, query, args...)}
}

func (t pgxTx) Commit(ctx context.Context) error {
	return classify(t.tx.Commit(ctx))
}

func (t pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type pgxRows struct {
	rows pgx.Rows
}

func (r pgxRows) Close()                 { r.rows.Close() }
func (r pgxRows) Next() bool             { return r.rows.Next() }
func (r pgxRows) Scan(dest ...any) error { return classify(r.rows.Scan(dest...)) }
func (r pgxRows) Err() error             { return classify(r.rows.Err()) }

type pgxRow struct {
	row pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	return classify(r.row.Scan(dest...))
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
