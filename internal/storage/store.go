// Package storage persists the assistant's memory blob, tasks and activity log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/config"
	"jarvis/internal/memory"
	"jarvis/pkg"
)

// ErrTaskNotFound is returned when a task id does not exist
var ErrTaskNotFound = errors.New("task not found")

// ActivityAction is the log entry written after every online exchange
const ActivityAction = "Chat interaction"

// Stats summarizes stored activity
type Stats struct {
	Tasks        int `json:"tasks"`
	Interactions int `json:"interactions"`
}

// Backend is everything the assistant keeps on disk or in a server
type Backend interface {
	memory.KVStore

	ListTasks(ctx context.Context) ([]pkg.Task, error)
	AddTask(ctx context.Context, title, description string, due *time.Time) (pkg.Task, error)
	SetTaskStatus(ctx context.Context, id int64, status pkg.TaskStatus) error
	DeleteTask(ctx context.Context, id int64) error

	LogAction(ctx context.Context, action string) error
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Open connects to the configured backend
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := NewRedisStorage(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// dueLayouts are the accepted due date encodings, most specific first
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339 and the shorter local forms task forms send
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized due date %q", s)
}

func formatDueDate(due *time.Time) any {
	if due == nil {
		return nil
	}
	return due.Format(time.RFC3339)
}
