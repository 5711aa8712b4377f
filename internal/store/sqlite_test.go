package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "boardsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStore_ProjectsRoundTripInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.LoadProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveProjects(ctx, []domain.Project{
		{ID: "p2", Name: "Website"},
		{ID: "p1", Name: "Mobile", Description: "iOS and Android"},
	}))
	require.NoError(t, s.SaveProjects(ctx, []domain.Project{
		{ID: "p3", Name: "Backend"},
		{ID: "p1", Name: "Mobile", Description: "iOS and Android"},
	}))

	got, err := s.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ID("p3"), got[0].ID)
	assert.Equal(t, "iOS and Android", got[1].Description)
}

func TestSQLiteStore_TaskSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tasks, fetchedAt, err := s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, tasks)
	assert.True(t, fetchedAt.IsZero())

	progress := 30
	now := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, s.SaveTasks(ctx, "p1", []domain.Task{
		{ID: "t1", Title: "Login", Status: domain.StatusInProgress, ProgressPercentage: &progress, DueDate: domain.MustDate("2024-06-01"), RiskLevel: domain.RiskHigh},
	}, now))

	tasks, fetchedAt, err = s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Login", tasks[0].Title)
	assert.Equal(t, 30, *tasks[0].ProgressPercentage)
	assert.Equal(t, domain.RiskHigh, tasks[0].RiskLevel)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, 2024, tasks[0].DueDate.Year())
	assert.True(t, now.Equal(fetchedAt))
}

func TestSQLiteStore_EmptySnapshotIsNotMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTasks(ctx, "p1", nil, time.Now()))
	tasks, _, err := s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	require.NoError(t, s.DeleteTasks(ctx, "p1"))
	tasks, _, err = s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, tasks)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardsync.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveTasks(ctx, "p1", []domain.Task{{ID: "t1", Title: "kept"}}, time.Now()))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tasks, _, err := s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "kept", tasks[0].Title)
}
