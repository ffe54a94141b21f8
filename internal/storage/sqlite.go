package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jarvis/internal/memory"
	"jarvis/pkg"

	_ "modernc.org/sqlite"
)

// localUser owns every row; the assistant is single-user
const localUser = 1

// SQLiteStore implements Backend on a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL,
		title       TEXT NOT NULL,
		description TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		due_date    TEXT
	);
	CREATE TABLE IF NOT EXISTS memory (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		key     TEXT NOT NULL,
		value   TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_memory_user_key ON memory(user_id, key);
	CREATE TABLE IF NOT EXISTS logs (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id   INTEGER NOT NULL,
		action    TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns every memory key/value pair
func (s *SQLiteStore) List(ctx context.Context) ([]memory.KVEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, COALESCE(value, '') FROM memory WHERE user_id = ? ORDER BY id`, localUser)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	defer rows.Close()

	var entries []memory.KVEntry
	for rows.Next() {
		var e memory.KVEntry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert writes value under key, replacing any previous value
func (s *SQLiteStore) Upsert(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`,
		localUser, key, value)
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", key, err)
	}
	return nil
}

// ListTasks returns tasks newest first
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]pkg.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), status, COALESCE(due_date, '')
		FROM tasks WHERE user_id = ? ORDER BY id DESC`, localUser)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []pkg.Task
	for rows.Next() {
		var (
			task   pkg.Task
			status string
			due    string
		)
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &status, &due); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Status = pkg.TaskStatus(status)
		// unparseable dates are treated as no due date
		task.DueDate, _ = ParseDueDate(due)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// AddTask inserts a pending task
func (s *SQLiteStore) AddTask(ctx context.Context, title, description string, due *time.Time) (pkg.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, due_date) VALUES (?, ?, ?, ?)`,
		localUser, title, description, formatDueDate(due))
	if err != nil {
		return pkg.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return pkg.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return pkg.Task{ID: id, Title: title, Description: description, Status: pkg.TaskPending, DueDate: due}, nil
}

// SetTaskStatus changes the status of one task
func (s *SQLiteStore) SetTaskStatus(ctx context.Context, id int64, status pkg.TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ? AND user_id = ?`, string(status), id, localUser)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteTask removes one task
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, localUser)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return requireRow(res, id)
}

// LogAction appends an activity log entry
func (s *SQLiteStore) LogAction(ctx context.Context, action string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO logs (user_id, action) VALUES (?, ?)`, localUser, action); err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// Stats counts tasks and logged interactions
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM tasks), (SELECT COUNT(*) FROM logs)`).
		Scan(&stats.Tasks, &stats.Interactions)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return nil
}
