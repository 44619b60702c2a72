package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/metrics"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	settingsRowID                = 1
	defaultMetricsUpdateInterval = 10 * time.Second
)

//go:embed sql/schema.sql
var schemaFS embed.FS

// DefaultLockDate is the submission deadline used until an admin changes it.
var DefaultLockDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // read-only default

// SQLStore implements Store on database/sql. Queries use $N placeholders in
// order of appearance so they run unchanged on SQLite and PostgreSQL.
type SQLStore struct {
	db                    *sql.DB
	now                   func() time.Time
	defaultLockDate       time.Time
	metricsUpdateInterval time.Duration
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. Call Migrate before use.
func New(db *sql.DB, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:                    db,
		now:                   time.Now,
		defaultLockDate:       DefaultLockDate,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates missing tables. It is safe to run repeatedly.
func (s *SQLStore) Migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("sql/schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(b), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Count returns the number of stored predictions, or 0 when the query fails.
func (s *SQLStore) Count(ctx context.Context) int {
	defer s.observe("count")()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		metrics.RecordErrorByComponent("repository", "count")
		return 0
	}
	return n
}

// RunMetricsLoop publishes the prediction count until ctx is done.
func (s *SQLStore) RunMetricsLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	metrics.UpdateTotalPredictions(s.Count(ctx))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			metrics.UpdateTotalPredictions(s.Count(ctx))
		}
	}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// observe records the latency of op when the returned func runs.
func (s *SQLStore) observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
	}
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	}
	return err
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: millis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func joinConnections(cs []model.ConnectionType) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func splitConnections(s string) []model.ConnectionType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.ConnectionType, len(parts))
	for i, p := range parts {
		out[i] = model.ConnectionType(p)
	}
	return out
}

// decodeGuess converts the stored date and time columns.
func decodeGuess(g *model.Guess, birthDate, birthTime string) error {
	d, err := model.ParseDate(birthDate)
	if err != nil {
		return fmt.Errorf("stored birth_date: %w", err)
	}
	c, err := model.ParseClockTime(birthTime)
	if err != nil {
		return fmt.Errorf("stored birth_time: %w", err)
	}
	g.BirthDate = d
	g.BirthTime = c
	return nil
}
