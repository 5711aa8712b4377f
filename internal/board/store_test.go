package board

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

func TestStore_SelectClearsCollection(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	require.True(t, s.ReplaceAll(gen, []domain.Task{task("1", "x", domain.StatusToDo)}))

	next := s.Select("b")
	assert.Greater(t, next, gen)

	snap := s.Snapshot()
	assert.Equal(t, domain.ID("b"), snap.ProjectID)
	assert.Empty(t, snap.Tasks)
	assert.False(t, snap.Loaded)
}

func TestStore_ReplaceAllRejectsStaleGeneration(t *testing.T) {
	s := NewStore()
	genA := s.Select("a")
	genB := s.Select("b")

	require.True(t, s.ReplaceAll(genB, []domain.Task{task("b1", "b", domain.StatusToDo)}))
	require.False(t, s.ReplaceAll(genA, []domain.Task{task("a1", "a", domain.StatusToDo)}))

	snap := s.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, domain.ID("b1"), snap.Tasks[0].ID)
}

func TestStore_ReplaceAllIsWholesale(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	require.True(t, s.ReplaceAll(gen, []domain.Task{task("1", "x", domain.StatusToDo), task("2", "y", domain.StatusToDo)}))
	require.True(t, s.ReplaceAll(gen, []domain.Task{task("3", "z", domain.StatusDone)}))

	assert.Equal(t, []string{"3"}, ids(s.Snapshot().Tasks))

	require.True(t, s.ReplaceAll(gen, nil))
	snap := s.Snapshot()
	assert.NotNil(t, snap.Tasks)
	assert.Empty(t, snap.Tasks)
	assert.True(t, snap.Loaded)
}

func TestStore_SeedOnlyBeforeFreshFetch(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	cachedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, s.Seed(gen, []domain.Task{task("cached", "c", domain.StatusToDo)}, cachedAt))
	snap := s.Snapshot()
	assert.True(t, snap.Loaded)
	assert.False(t, snap.Fresh)
	assert.Equal(t, cachedAt, snap.FetchedAt)

	require.True(t, s.ReplaceAll(gen, []domain.Task{task("live", "l", domain.StatusToDo)}))
	require.False(t, s.Seed(gen, []domain.Task{task("cached", "c", domain.StatusToDo)}, cachedAt))
	assert.Equal(t, []string{"live"}, ids(s.Snapshot().Tasks))
}

func TestStore_LocalCompletionMarksPendingOnly(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	require.True(t, s.ReplaceAll(gen, []domain.Task{task("1", "x", domain.StatusToDo)}))

	require.True(t, s.ApplyLocalCompletion("1"))
	require.False(t, s.ApplyLocalCompletion("1"))

	snap := s.Snapshot()
	assert.True(t, snap.IsCompleting("1"))
	got, ok := s.Task("1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusToDo, got.Status)

	s.ClearCompletion("1")
	assert.False(t, s.Snapshot().IsCompleting("1"))
	assert.True(t, s.ApplyLocalCompletion("1"))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	require.True(t, s.ReplaceAll(gen, []domain.Task{task("1", "x", domain.StatusToDo)}))

	snap := s.Snapshot()
	snap.Tasks[0].Title = "changed"
	snap.Pending["1"] = struct{}{}

	got, _ := s.Task("1")
	assert.Equal(t, "x", got.Title)
	assert.False(t, s.Snapshot().IsCompleting("1"))
}

func TestStore_SubscribeNotifiesUntilCancelled(t *testing.T) {
	s := NewStore()
	var seen []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	gen := s.Select("a")
	s.ReplaceAll(gen, []domain.Task{task("1", "x", domain.StatusToDo)})
	require.Len(t, seen, 2)
	assert.Len(t, seen[1].Tasks, 1)

	cancel()
	s.Select("b")
	assert.Len(t, seen, 2)
}

func TestStore_Filtered(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")
	s.ReplaceAll(gen, []domain.Task{
		task("1", "Fix bug", domain.StatusToDo),
		task("2", "Ship", domain.StatusDone),
	})

	assert.Equal(t, []string{"1"}, ids(s.Filtered(Query{Text: "BUG"})))
}

func TestStore_LastNotificationMatchesFinalState(t *testing.T) {
	s := NewStore()
	gen := s.Select("a")

	var (
		mu   sync.Mutex
		last Snapshot
	)
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		last = snap
		mu.Unlock()
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id := domain.ID(fmt.Sprint(i))
			s.ApplyLocalCompletion(id)
			s.ClearCompletion(id)
		}(i)
		go func(i int) {
			defer wg.Done()
			s.ReplaceAll(gen, []domain.Task{task(fmt.Sprint(i), "t", domain.StatusToDo)})
		}(i)
	}
	wg.Wait()

	final := s.Snapshot()
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, last.Pending)
	assert.Equal(t, final.Tasks, last.Tasks)
	assert.Equal(t, final.FetchedAt, last.FetchedAt)
}
