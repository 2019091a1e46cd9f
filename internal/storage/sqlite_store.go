package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/annelo/go-tile-server/internal/metrics"
)

// SQLiteStore хранит снимки в таблице worlds одной базы SQLite
type SQLiteStore struct {
	db   *sql.DB
	log  *zap.SugaredLogger
	once sync.Once
}

// OpenSQLite открывает (или создает) базу по пути path
func OpenSQLite(path string, logger *zap.SugaredLogger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Один писатель: SQLite все равно сериализует запись
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("схема базы: %w", err)
	}
	return &SQLiteStore{db: db, log: logger}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS worlds (
			name TEXT PRIMARY KEY,
			snapshot BLOB NOT NULL,
			size INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Save записывает или заменяет снимок мира
func (s *SQLiteStore) Save(ctx context.Context, name string, snapshot []byte) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO worlds (name, snapshot, size, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot, size = excluded.size, saved_at = excluded.saved_at`,
		name, snapshot, len(snapshot), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("сохранение мира %s: %w", name, err)
	}

	metrics.SnapshotsSaved.Add(1)
	s.log.Debugw("снимок сохранен", "world", name, "bytes", len(snapshot))
	return nil
}

// Load читает снимок мира
func (s *SQLiteStore) Load(ctx context.Context, name string) ([]byte, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT snapshot FROM worlds WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("загрузка мира %s: %w", name, err)
	}
	return data, nil
}

// List возвращает имена всех миров в базе
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM worlds ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete удаляет мир из базы; отсутствие мира не ошибка
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM worlds WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}
