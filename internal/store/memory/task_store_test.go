package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagesift/pagesift/internal/store"
)

func TestSaveAndListTasks(t *testing.T) {
	t.Parallel()

	ts := New()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	first, err := ts.SaveTaskWithFiles(ctx, store.Task{
		URL:       "https://a.example.com",
		Status:    store.StatusCompleted,
		Success:   true,
		CreatedAt: base,
	}, []store.File{
		{Filename: "a.md", FileType: "markdown", Bucket: "b", ObjectKey: "a.md"},
		{Filename: "a.json", FileType: "ai_result", Bucket: "b", ObjectKey: "a.json"},
	})
	require.NoError(t, err)

	second, err := ts.SaveTaskWithFiles(ctx, store.Task{
		URL:       "https://b.example.com",
		Status:    store.StatusFailed,
		CreatedAt: base.Add(time.Minute),
	}, nil)
	require.NoError(t, err)
	require.Greater(t, second, first)

	summaries, err := ts.ListTasks(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, second, summaries[0].ID, "newest first")
	require.Equal(t, 2, summaries[1].FileCount)

	page, err := ts.ListTasks(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, first, page[0].ID)
}

func TestGetTaskAndFiles(t *testing.T) {
	t.Parallel()

	ts := New()
	ctx := context.Background()

	id, err := ts.SaveTaskWithFiles(ctx, store.Task{
		URL:     "https://example.com",
		AIModes: []string{"summary"},
		Status:  store.StatusCompleted,
		Success: true,
	}, []store.File{
		{Filename: "page.md", FileType: "markdown", Bucket: "b", ObjectKey: "page.md"},
	})
	require.NoError(t, err)

	task, err := ts.GetTask(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"summary"}, task.AIModes)

	files, err := ts.ListFiles(ctx, id)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, id, files[0].TaskID)

	got, err := ts.GetFile(ctx, files[0].ID)
	require.NoError(t, err)
	require.Equal(t, "page.md", got.Filename)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	ts := New()
	ctx := context.Background()

	_, err := ts.GetTask(ctx, 99)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = ts.GetFile(ctx, 99)
	require.ErrorIs(t, err, store.ErrNotFound)
}
