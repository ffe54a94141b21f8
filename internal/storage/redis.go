package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"jarvis/internal/memory"
	"jarvis/pkg"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "jarvis:"
	memoryKey  = keyPrefix + "memory"
	tasksKey   = keyPrefix + "tasks"
	taskSeqKey = keyPrefix + "tasks:seq"
	logsKey    = keyPrefix + "logs"

	// MaxLogEntries caps the activity list
	MaxLogEntries = 10000
)

type logEntry struct {
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// RedisStorage implements Backend on a Redis server
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to the Redis server at redisURL
func NewRedisStorage(ctx context.Context, redisURL string) (*RedisStorage, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("JARVIS_STORE_REDIS_URL is required for the redis backend")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Ping tests Redis connection
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// List returns every memory key/value pair, ordered by key
func (r *RedisStorage) List(ctx context.Context) ([]memory.KVEntry, error) {
	values, err := r.client.HGetAll(ctx, memoryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list memory: %w", err)
	}

	entries := make([]memory.KVEntry, 0, len(values))
	for k, v := range values {
		entries = append(entries, memory.KVEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Upsert writes value under key
func (r *RedisStorage) Upsert(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, memoryKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to set memory %s: %w", key, err)
	}
	return nil
}

// ListTasks returns tasks newest first
func (r *RedisStorage) ListTasks(ctx context.Context) ([]pkg.Task, error) {
	values, err := r.client.HGetAll(ctx, tasksKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]pkg.Task, 0, len(values))
	for field, raw := range values {
		var task pkg.Task
		if err := sonic.UnmarshalString(raw, &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task %s: %w", field, err)
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

// AddTask stores a pending task under the next sequence id
func (r *RedisStorage) AddTask(ctx context.Context, title, description string, due *time.Time) (pkg.Task, error) {
	id, err := r.client.Incr(ctx, taskSeqKey).Result()
	if err != nil {
		return pkg.Task{}, fmt.Errorf("failed to allocate task id: %w", err)
	}

	task := pkg.Task{ID: id, Title: title, Description: description, Status: pkg.TaskPending, DueDate: due}
	if err := r.putTask(ctx, task); err != nil {
		return pkg.Task{}, err
	}
	return task, nil
}

// SetTaskStatus changes the status of one task
func (r *RedisStorage) SetTaskStatus(ctx context.Context, id int64, status pkg.TaskStatus) error {
	raw, err := r.client.HGet(ctx, tasksKey, taskField(id)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get task %d: %w", id, err)
	}

	var task pkg.Task
	if err := sonic.UnmarshalString(raw, &task); err != nil {
		return fmt.Errorf("failed to unmarshal task %d: %w", id, err)
	}
	task.Status = status
	return r.putTask(ctx, task)
}

// DeleteTask removes one task
func (r *RedisStorage) DeleteTask(ctx context.Context, id int64) error {
	n, err := r.client.HDel(ctx, tasksKey, taskField(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return nil
}

// LogAction pushes an activity entry, keeping at most MaxLogEntries
func (r *RedisStorage) LogAction(ctx context.Context, action string) error {
	entry, err := sonic.MarshalString(logEntry{Action: action, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, logsKey, entry)
	pipe.LTrim(ctx, logsKey, 0, MaxLogEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}

// Stats counts tasks and logged interactions
func (r *RedisStorage) Stats(ctx context.Context) (Stats, error) {
	pipe := r.client.Pipeline()
	tasks := pipe.HLen(ctx, tasksKey)
	logs := pipe.LLen(ctx, logsKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}
	return Stats{Tasks: int(tasks.Val()), Interactions: int(logs.Val())}, nil
}

func (r *RedisStorage) putTask(ctx context.Context, task pkg.Task) error {
	raw, err := sonic.MarshalString(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := r.client.HSet(ctx, tasksKey, taskField(task.ID), raw).Err(); err != nil {
		return fmt.Errorf("failed to save task %d: %w", task.ID, err)
	}
	return nil
}

func taskField(id int64) string {
	return strconv.FormatInt(id, 10)
}
