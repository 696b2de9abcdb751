// Package postgres provides the Postgres-backed task store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagesift/pagesift/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it for tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// TaskStore writes task and file rows into Postgres.
type TaskStore struct {
	pool pgxPool
}

// New creates a Postgres-backed TaskStore using the provided config.
func New(ctx context.Context, cfg Config) (*TaskStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &TaskStore{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool pgxPool) (*TaskStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TaskStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *TaskStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS crawl_tasks (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	content_source TEXT NOT NULL DEFAULT 'cleaned_html',
	ai_modes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	success BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT NOT NULL DEFAULT '',
	markdown_content TEXT NOT NULL DEFAULT '',
	ai_results JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_crawl_tasks_url ON crawl_tasks (url);
CREATE INDEX IF NOT EXISTS idx_crawl_tasks_status ON crawl_tasks (status);
CREATE INDEX IF NOT EXISTS idx_crawl_tasks_created_at ON crawl_tasks (created_at);
CREATE TABLE IF NOT EXISTS crawl_files (
	id BIGSERIAL PRIMARY KEY,
	task_id BIGINT NOT NULL REFERENCES crawl_tasks (id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	bucket TEXT NOT NULL,
	object_key TEXT NOT NULL,
	uri TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	uploaded_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_crawl_files_task_id ON crawl_files (task_id);
CREATE INDEX IF NOT EXISTS idx_crawl_files_type ON crawl_files (file_type);
`

// EnsureSchema creates the task and file tables when they do not exist.
func (s *TaskStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertTaskSQL = `
INSERT INTO crawl_tasks (
	url, content_source, ai_modes, status, success, error_message,
	markdown_content, ai_results, created_at, started_at, completed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`

const insertFileSQL = `
INSERT INTO crawl_files (
	task_id, filename, file_type, file_size, content_type,
	bucket, object_key, uri, created_at, uploaded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

// SaveTaskWithFiles inserts the task row and all file rows in one
// transaction; any failure rolls the whole write back.
func (s *TaskStore) SaveTaskWithFiles(ctx context.Context, task store.Task, files []store.File) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var taskID int64
	err = tx.QueryRow(ctx, insertTaskSQL,
		task.URL,
		task.ContentSource,
		strings.Join(task.AIModes, ","),
		task.Status,
		task.Success,
		task.ErrorMessage,
		task.MarkdownContent,
		nullableJSON(task.AIResults),
		task.CreatedAt,
		task.StartedAt,
		task.CompletedAt,
	).Scan(&taskID)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	for _, f := range files {
		if _, err := tx.Exec(ctx, insertFileSQL,
			taskID,
			f.Filename,
			f.FileType,
			f.FileSize,
			f.ContentType,
			f.Bucket,
			f.ObjectKey,
			f.URI,
			f.CreatedAt,
			f.UploadedAt,
		); err != nil {
			return 0, fmt.Errorf("insert file %s: %w", f.Filename, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit task: %w", err)
	}
	return taskID, nil
}

const listTasksSQL = `
SELECT t.id, t.url, t.content_source, t.ai_modes, t.status, t.success, t.created_at,
	COUNT(f.id) AS file_count
FROM crawl_tasks t
LEFT JOIN crawl_files f ON f.task_id = t.id
GROUP BY t.id
ORDER BY t.created_at DESC
LIMIT $1 OFFSET $2`

// ListTasks returns task summaries newest first.
func (s *TaskStore) ListTasks(ctx context.Context, limit, offset int) ([]store.TaskSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, listTasksSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []store.TaskSummary
	for rows.Next() {
		var (
			summary store.TaskSummary
			modes   string
		)
		if err := rows.Scan(&summary.ID, &summary.URL, &summary.ContentSource, &modes,
			&summary.Status, &summary.Success, &summary.CreatedAt, &summary.FileCount); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		summary.AIModes = splitModes(modes)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return out, nil
}

const getTaskSQL = `
SELECT id, url, content_source, ai_modes, status, success, error_message,
	markdown_content, COALESCE(ai_results::text, ''), created_at, started_at, completed_at
FROM crawl_tasks WHERE id = $1`

// GetTask loads one task row.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (store.Task, error) {
	var (
		task  store.Task
		modes string
	)
	err := s.pool.QueryRow(ctx, getTaskSQL, id).Scan(
		&task.ID, &task.URL, &task.ContentSource, &modes, &task.Status, &task.Success,
		&task.ErrorMessage, &task.MarkdownContent, &task.AIResults,
		&task.CreatedAt, &task.StartedAt, &task.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Task{}, store.ErrNotFound
		}
		return store.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	task.AIModes = splitModes(modes)
	return task, nil
}

const listFilesSQL = `
SELECT id, task_id, filename, file_type, file_size, content_type,
	bucket, object_key, uri, created_at, uploaded_at
FROM crawl_files WHERE task_id = $1 ORDER BY id`

// ListFiles returns the files owned by a task.
func (s *TaskStore) ListFiles(ctx context.Context, taskID int64) ([]store.File, error) {
	rows, err := s.pool.Query(ctx, listFilesSQL, taskID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []store.File
	for rows.Next() {
		var f store.File
		if err := rows.Scan(&f.ID, &f.TaskID, &f.Filename, &f.FileType, &f.FileSize,
			&f.ContentType, &f.Bucket, &f.ObjectKey, &f.URI, &f.CreatedAt, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}
	return out, nil
}

const getFileSQL = `
SELECT id, task_id, filename, file_type, file_size, content_type,
	bucket, object_key, uri, created_at, uploaded_at
FROM crawl_files WHERE id = $1`

// GetFile loads one file row.
func (s *TaskStore) GetFile(ctx context.Context, fileID int64) (store.File, error) {
	var f store.File
	err := s.pool.QueryRow(ctx, getFileSQL, fileID).Scan(
		&f.ID, &f.TaskID, &f.Filename, &f.FileType, &f.FileSize,
		&f.ContentType, &f.Bucket, &f.ObjectKey, &f.URI, &f.CreatedAt, &f.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.File{}, store.ErrNotFound
		}
		return store.File{}, fmt.Errorf("get file %d: %w", fileID, err)
	}
	return f, nil
}

func splitModes(modes string) []string {
	if modes == "" {
		return nil
	}
	return strings.Split(modes, ",")
}

// nullableJSON maps an empty JSON blob to NULL for the jsonb column.
func nullableJSON(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
