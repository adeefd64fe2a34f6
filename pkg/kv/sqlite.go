package kv

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the single-process durable backend, grounded on
// examples/health-monitor/database.go's sql.DB + go-sqlite3 wiring. One
// table holds every namespace; (namespace, key, ts) is the primary key.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed Store at
// path. Use ":memory:" for an ephemeral database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_versions (
		namespace TEXT NOT NULL,
		key       BLOB NOT NULL,
		ts        INTEGER NOT NULL,
		value     BLOB NOT NULL,
		PRIMARY KEY (namespace, key, ts)
	);

	CREATE INDEX IF NOT EXISTS idx_kv_versions_lookup
		ON kv_versions(namespace, key, ts DESC);
	`
	_, err := db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_versions (namespace, key, ts, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key, ts) DO UPDATE SET value = excluded.value
	`, ns, key, ts, value)
	if err != nil {
		return wrapIOError("put", ns, err)
	}
	return nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	var (
		row *sql.Row
	)
	if before == nil {
		row = s.db.QueryRowContext(ctx, `
			SELECT value FROM kv_versions
			WHERE namespace = ? AND key = ?
			ORDER BY ts DESC LIMIT 1
		`, ns, key)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT value FROM kv_versions
			WHERE namespace = ? AND key = ? AND ts <= ?
			ORDER BY ts DESC LIMIT 1
		`, ns, key, *before)
	}

	var value []byte
	switch err := row.Scan(&value); {
	case err == sql.ErrNoRows:
		return nil, false, nil
	case err != nil:
		return nil, false, wrapIOError("getLatest", ns, err)
	default:
		return value, true, nil
	}
}

func (s *SQLiteStore) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ts FROM kv_versions
		WHERE namespace = ? AND key = ?
		ORDER BY ts DESC LIMIT 1
	`, ns, key)

	var ts uint64
	switch err := row.Scan(&ts); {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, wrapIOError("getLatestTimestamp", ns, err)
	default:
		return ts, true, nil
	}
}

func (s *SQLiteStore) GetAllTimestamps(ctx context.Context, ns string, key []byte) (iter.Seq[uint64], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts FROM kv_versions
		WHERE namespace = ? AND key = ?
		ORDER BY ts DESC
	`, ns, key)
	if err != nil {
		return nil, wrapIOError("getAllTimestamps", ns, err)
	}

	return func(yield func(uint64) bool) {
		defer rows.Close()
		for rows.Next() {
			var ts uint64
			if err := rows.Scan(&ts); err != nil {
				return
			}
			if !yield(ts) {
				return
			}
		}
	}, nil
}

func (s *SQLiteStore) ScanAll(ctx context.Context, ns string) (iter.Seq2[[]byte, []byte], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM kv_versions t1
		WHERE namespace = ? AND ts = (
			SELECT MAX(ts) FROM kv_versions t2
			WHERE t2.namespace = t1.namespace AND t2.key = t1.key
		)
		ORDER BY key
	`, ns)
	if err != nil {
		return nil, wrapIOError("scanAll", ns, err)
	}

	return func(yield func([]byte, []byte) bool) {
		defer rows.Close()
		for rows.Next() {
			var key, value []byte
			if err := rows.Scan(&key, &value); err != nil {
				return
			}
			if !yield(key, value) {
				return
			}
		}
	}, nil
}

func (s *SQLiteStore) ScanAllKeys(ctx context.Context, ns string) (iter.Seq[[]byte], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT key FROM kv_versions WHERE namespace = ? ORDER BY key
	`, ns)
	if err != nil {
		return nil, wrapIOError("scanAllKeys", ns, err)
	}

	return func(yield func([]byte) bool) {
		defer rows.Close()
		for rows.Next() {
			var key []byte
			if err := rows.Scan(&key); err != nil {
				return
			}
			if !yield(key) {
				return
			}
		}
	}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ns string, key []byte, marker *uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapIOError("delete", ns, err)
	}
	defer tx.Rollback()

	if marker == nil {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM kv_versions WHERE namespace = ? AND key = ?
		`, ns, key); err != nil {
			return wrapIOError("delete", ns, err)
		}
		return wrapIOError("delete", ns, tx.Commit())
	}

	row := tx.QueryRowContext(ctx, `
		SELECT ts FROM kv_versions
		WHERE namespace = ? AND key = ? AND ts <= ?
		ORDER BY ts DESC LIMIT 1
	`, ns, key, *marker)

	var retained uint64
	switch err := row.Scan(&retained); {
	case err == sql.ErrNoRows:
		return wrapIOError("delete", ns, tx.Commit())
	case err != nil:
		return wrapIOError("delete", ns, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM kv_versions WHERE namespace = ? AND key = ? AND ts <= ? AND ts != ?
	`, ns, key, *marker, retained); err != nil {
		return wrapIOError("delete", ns, err)
	}
	return wrapIOError("delete", ns, tx.Commit())
}
