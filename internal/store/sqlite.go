package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore keeps every record in a single records table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at path, applies pragmas and runs the
// embedded migrations. Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one writer; also keeps a ":memory:" database alive on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection, key string, v any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, key, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, data, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrExists)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, collection, key string, v any) error {
	data, err := s.ReadRaw(ctx, collection, key)
	if err != nil {
		return err
	}
	return decode(data, v)
}

func (s *SQLiteStore) ReadRaw(ctx context.Context, collection, key string) ([]byte, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND key = ?`,
		collection, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", collection, key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, key string, v any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET body = ?, updated_at = ? WHERE collection = ? AND key = ?`,
		data, s.now().UnixMilli(), collection, key)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, key, err)
	}
	return requireRow(res, collection, key)
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return requireRow(res, collection, key)
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]string, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM records WHERE collection = ? ORDER BY key`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", collection, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return keys, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, collection, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s/%s: %w", collection, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	return nil
}
