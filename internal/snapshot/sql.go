package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

// snapshotRowID is the id of the single row every SQL backend keeps.
const snapshotRowID = 1

// SQLStore keeps the latest snapshot in a one-row table.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// OpenPostgres connects to databaseURL and applies the snapshot schema.
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLStore(ctx, db, dialectPostgres, logger)
}

// OpenSQLite opens (or creates) the database file at path and applies the
// snapshot schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, dialectSQLite, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}
	if err := Migrate(ctx, db, dialect, MigrateUp, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// DB exposes the underlying handle for migration commands.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the goose dialect of the store.
func (s *SQLStore) Dialect() string {
	return s.dialect
}

func (s *SQLStore) upsertQuery() string {
	if s.dialect == dialectPostgres {
		return `INSERT INTO conversation_snapshots (id, version, saved_at, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET version = EXCLUDED.version, saved_at = EXCLUDED.saved_at, payload = EXCLUDED.payload`
	}
	return `INSERT INTO conversation_snapshots (id, version, saved_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET version = excluded.version, saved_at = excluded.saved_at, payload = excluded.payload`
}

func (s *SQLStore) placeholder() string {
	if s.dialect == dialectPostgres {
		return "$1"
	}
	return "?"
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertQuery(),
		snapshotRowID, snap.Version, snap.SavedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context) (Snapshot, error) {
	var payload string
	query := "SELECT payload FROM conversation_snapshots WHERE id = " + s.placeholder()
	err := s.db.QueryRowContext(ctx, query, snapshotRowID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decode([]byte(payload))
}

// LastSaved implements Store.
func (s *SQLStore) LastSaved(ctx context.Context) (time.Time, error) {
	var savedAt int64
	query := "SELECT saved_at FROM conversation_snapshots WHERE id = " + s.placeholder()
	err := s.db.QueryRowContext(ctx, query, snapshotRowID).Scan(&savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read snapshot time: %w", err)
	}
	return time.Unix(0, savedAt), nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
