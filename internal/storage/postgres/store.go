// Package postgres stores exchange records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver
	"github.com/pressly/goose/v3/database"

	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/storage/migrate"
)

const (
	defaultListLimit = 100

	// DriverPgx selects jackc/pgx through database/sql.
	DriverPgx = "pgx"
	// DriverPQ selects lib/pq.
	DriverPQ = "postgres"
)

const columns = `id, request_id, target, method, url, status_code, outcome, error_kind, error, body_size, created_at`

//go:embed migrations/*.sql
var migrations embed.FS

func migrationFS() fs.FS {
	sub, _ := fs.Sub(migrations, "migrations")
	return sub
}

// Config holds connection settings.
type Config struct {
	DSN string
	// Driver is DriverPgx (default) or DriverPQ.
	Driver       string
	MaxOpenConns int
	MaxIdleConns int
}

// Store is a PostgreSQL implementation of ExchangeStore.
type Store struct {
	db *sqlx.DB
}

var _ ports.ExchangeStore = (*Store)(nil)

type exchangeRow struct {
	ID         string         `db:"id"`
	RequestID  sql.NullString `db:"request_id"`
	Target     string         `db:"target"`
	Method     string         `db:"method"`
	URL        string         `db:"url"`
	StatusCode int            `db:"status_code"`
	Outcome    string         `db:"outcome"`
	ErrorKind  sql.NullString `db:"error_kind"`
	Error      sql.NullString `db:"error"`
	BodySize   int            `db:"body_size"`
	CreatedAt  time.Time      `db:"created_at"`
}

// New connects to the database and applies pending migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate.Up(ctx, db.DB, database.DialectPostgres, migrationFS()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func driverName(name string) (string, error) {
	switch name {
	case "", DriverPgx:
		return DriverPgx, nil
	case DriverPQ, "pq":
		return DriverPQ, nil
	default:
		return "", fmt.Errorf("unknown postgres driver: %s", name)
	}
}

func (s *Store) SaveExchange(ctx context.Context, rec *ports.ExchangeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO exchanges (` + columns + `)
	          VALUES (:id, :request_id, :target, :method, :url, :status_code, :outcome, :error_kind, :error, :body_size, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, toRow(rec)); err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

func (s *Store) GetExchange(ctx context.Context, id string) (*ports.ExchangeRecord, error) {
	var row exchangeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+columns+` FROM exchanges WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrExchangeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return fromRow(row), nil
}

func (s *Store) ListExchanges(ctx context.Context, opts ports.ExchangeListOptions) ([]*ports.ExchangeRecord, error) {
	query, args := listQuery(opts)

	var rows []exchangeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	records := make([]*ports.ExchangeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(row))
	}
	return records, nil
}

// listQuery builds the filtered, newest-first SELECT with numbered
// placeholders.
func listQuery(opts ports.ExchangeListOptions) (string, []any) {
	var (
		where []string
		args  []any
	)
	if opts.Target != "" {
		where = append(where, "target = ?")
		args = append(args, opts.Target)
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, opts.Outcome)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + columns + ` FROM exchanges`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toRow(rec *ports.ExchangeRecord) exchangeRow {
	return exchangeRow{
		ID:         rec.ID,
		RequestID:  nullString(rec.RequestID),
		Target:     rec.Target,
		Method:     rec.Method,
		URL:        rec.URL,
		StatusCode: rec.StatusCode,
		Outcome:    rec.Outcome,
		ErrorKind:  nullString(rec.ErrorKind),
		Error:      nullString(rec.Error),
		BodySize:   rec.BodySize,
		CreatedAt:  rec.CreatedAt,
	}
}

func fromRow(row exchangeRow) *ports.ExchangeRecord {
	return &ports.ExchangeRecord{
		ID:         row.ID,
		RequestID:  row.RequestID.String,
		Target:     row.Target,
		Method:     row.Method,
		URL:        row.URL,
		StatusCode: row.StatusCode,
		Outcome:    row.Outcome,
		ErrorKind:  row.ErrorKind.String,
		Error:      row.Error.String,
		BodySize:   row.BodySize,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
