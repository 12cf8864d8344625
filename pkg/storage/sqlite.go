package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	profile TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (profile, key)
)`

// SQLite is a backend persisted in a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// SQLite permits a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	zap.S().Infow("Opened key-value store", "path", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Profile(name string) Store {
	return &sqliteStore{db: s.db, profile: name}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteStore struct {
	db      *sql.DB
	profile string
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE profile = ? AND key = ?`, s.profile, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", key)
	}
	return value, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (profile, key, value) VALUES (?, ?, ?)
		ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value`,
		s.profile, key, value)
	return errors.Wrapf(err, "failed to write %s", key)
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE profile = ? AND key = ?`, s.profile, key)
	return errors.Wrapf(err, "failed to delete %s", key)
}
