// Package memory keeps tasks and files in-memory for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pagesift/pagesift/internal/store"
)

// TaskStore is a map-backed TaskStore. Writes are atomic per call.
type TaskStore struct {
	mu         sync.RWMutex
	nextTaskID int64
	nextFileID int64
	tasks      map[int64]store.Task
	files      map[int64]store.File
}

// New creates an empty in-memory task store.
func New() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]store.Task),
		files: make(map[int64]store.File),
	}
}

// SaveTaskWithFiles assigns IDs and stores the task plus its files under one
// lock, mirroring the transactional behavior of the Postgres store.
func (s *TaskStore) SaveTaskWithFiles(_ context.Context, task store.Task, files []store.File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	task.ID = s.nextTaskID
	s.tasks[task.ID] = task

	for _, f := range files {
		s.nextFileID++
		f.ID = s.nextFileID
		f.TaskID = task.ID
		s.files[f.ID] = f
	}
	return task.ID, nil
}

// ListTasks returns summaries newest first.
func (s *TaskStore) ListTasks(_ context.Context, limit, offset int) ([]store.TaskSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]store.TaskSummary, 0, len(s.tasks))
	for _, t := range s.tasks {
		count := 0
		for _, f := range s.files {
			if f.TaskID == t.ID {
				count++
			}
		}
		summaries = append(summaries, store.TaskSummary{
			ID:            t.ID,
			URL:           t.URL,
			ContentSource: t.ContentSource,
			AIModes:       t.AIModes,
			Status:        t.Status,
			Success:       t.Success,
			CreatedAt:     t.CreatedAt,
			FileCount:     count,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	if offset >= len(summaries) {
		return nil, nil
	}
	summaries = summaries[offset:]
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// GetTask returns one task or ErrNotFound.
func (s *TaskStore) GetTask(_ context.Context, id int64) (store.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.Task{}, store.ErrNotFound
	}
	return t, nil
}

// ListFiles returns the files owned by a task ordered by ID.
func (s *TaskStore) ListFiles(_ context.Context, taskID int64) ([]store.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.File
	for _, f := range s.files {
		if f.TaskID == taskID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetFile returns one file or ErrNotFound.
func (s *TaskStore) GetFile(_ context.Context, fileID int64) (store.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	if !ok {
		return store.File{}, store.ErrNotFound
	}
	return f, nil
}

// Close is a no-op for the memory store.
func (s *TaskStore) Close() {}
