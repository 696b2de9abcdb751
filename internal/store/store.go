// Package store defines persistence of crawl tasks and their stored files.
package store

import (
	"context"
	"errors"
	"time"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrNotFound is returned when a task or file row does not exist.
var ErrNotFound = errors.New("record not found")

// Task represents one crawl invocation. Rows are immutable once written
// except via explicit reload.
type Task struct {
	ID              int64
	URL             string
	ContentSource   string
	AIModes         []string
	Status          string
	Success         bool
	ErrorMessage    string
	MarkdownContent string
	AIResults       string // JSON blob of per-mode envelopes
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// File represents one stored artifact owned by a task. Deleting a task
// cascades to its files.
type File struct {
	ID          int64
	TaskID      int64
	Filename    string
	FileType    string
	FileSize    int64
	ContentType string
	Bucket      string
	ObjectKey   string
	URI         string
	CreatedAt   time.Time
	UploadedAt  *time.Time
}

// TaskSummary is the history-listing projection of a task.
type TaskSummary struct {
	ID            int64
	URL           string
	ContentSource string
	AIModes       []string
	Status        string
	Success       bool
	CreatedAt     time.Time
	FileCount     int
}

// TaskStore persists tasks and files. SaveTaskWithFiles is the single
// transactional boundary: the task row and all its file rows commit or roll
// back together.
type TaskStore interface {
	SaveTaskWithFiles(ctx context.Context, task Task, files []File) (int64, error)
	ListTasks(ctx context.Context, limit, offset int) ([]TaskSummary, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	ListFiles(ctx context.Context, taskID int64) ([]File, error)
	GetFile(ctx context.Context, fileID int64) (File, error)
	Close()
}
