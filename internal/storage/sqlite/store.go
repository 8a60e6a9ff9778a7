package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/courier/internal/core/ports"
	"github.com/tjfontaine/courier/internal/storage/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

func migrationFS() fs.FS {
	sub, _ := fs.Sub(migrations, "migrations")
	return sub
}

const defaultListLimit = 100

// Store is a SQLite implementation of ExchangeStore.
type Store struct {
	db *sqlx.DB
}

var _ ports.ExchangeStore = (*Store)(nil)

// exchangeRow is the exchanges table row.
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

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := migrate.Up(context.Background(), db.DB, database.DialectSQLite3, migrationFS()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) SaveExchange(ctx context.Context, rec *ports.ExchangeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO exchanges (id, request_id, target, method, url, status_code, outcome, error_kind, error, body_size, created_at)
	          VALUES (:id, :request_id, :target, :method, :url, :status_code, :outcome, :error_kind, :error, :body_size, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, toRow(rec)); err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

func (s *Store) GetExchange(ctx context.Context, id string) (*ports.ExchangeRecord, error) {
	var row exchangeRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM exchanges WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrExchangeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return fromRow(row), nil
}

func (s *Store) ListExchanges(ctx context.Context, opts ports.ExchangeListOptions) ([]*ports.ExchangeRecord, error) {
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

	query := `SELECT * FROM exchanges`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

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
		CreatedAt:  row.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
