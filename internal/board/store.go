// Package board holds the task board state: the task collection store, its
// derived filtered and projected views, the poll-refresh binding and the
// completion coordinator.
package board

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

var (
	// ErrCompletionInFlight rejects a completion for a task that already has
	// one pending.
	ErrCompletionInFlight = errors.New("completion already in flight for task")
	// ErrNoSelection is returned when an operation needs a selected project.
	ErrNoSelection = errors.New("no project selected")
	// ErrInvalidQuery reports an unknown status or sort key.
	ErrInvalidQuery = errors.New("invalid query")
)

// Snapshot is an immutable copy of the store state.
type Snapshot struct {
	ProjectID  domain.ID
	Generation uint64
	Tasks      []domain.Task
	// Pending holds the tasks with a completion in flight.
	Pending map[domain.ID]struct{}
	// Loaded is true once a fetch or a cached snapshot has been applied for
	// the current selection.
	Loaded bool
	// Fresh is true once a live fetch has been applied for the current
	// selection.
	Fresh     bool
	FetchedAt time.Time
}

// IsCompleting reports whether a completion is in flight for id.
func (s Snapshot) IsCompleting(id domain.ID) bool {
	_, ok := s.Pending[id]
	return ok
}

// Listener is notified after every state change.
type Listener func(Snapshot)

// Store is the authoritative local copy of the selected project's tasks. The
// collection is only ever replaced wholesale; the last applied fetch wins.
type Store struct {
	mu         sync.RWMutex
	projectID  domain.ID
	generation uint64
	tasks      []domain.Task
	pending    map[domain.ID]struct{}
	loaded     bool
	fresh      bool
	fetchedAt  time.Time

	notifyMu    sync.Mutex
	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
	now         func() time.Time
}

// NewStore creates an empty store with no selection.
func NewStore() *Store {
	return &Store{
		pending:   make(map[domain.ID]struct{}),
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// Select switches the selected project, clears the collection and returns
// the new generation. Results fetched under an older generation are
// discarded by ReplaceAll.
func (s *Store) Select(projectID domain.ID) uint64 {
	s.mu.Lock()
	s.generation++
	s.projectID = projectID
	s.tasks = nil
	s.loaded = false
	s.fresh = false
	s.fetchedAt = time.Time{}
	gen := s.generation
	s.mu.Unlock()

	s.notify()
	return gen
}

// Selection returns the selected project and its generation.
func (s *Store) Selection() (domain.ID, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID, s.generation
}

// ReplaceAll replaces the collection with a fetch result obtained under gen.
// It returns false and leaves the store untouched when the selection changed
// since the fetch was issued.
func (s *Store) ReplaceAll(gen uint64, tasks []domain.Task) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.tasks = slices.Clone(tasks)
	if s.tasks == nil {
		s.tasks = []domain.Task{}
	}
	s.loaded = true
	s.fresh = true
	s.fetchedAt = s.now()
	s.mu.Unlock()

	s.notify()
	return true
}

// Seed applies a cached collection for gen if no live fetch has landed yet.
func (s *Store) Seed(gen uint64, tasks []domain.Task, fetchedAt time.Time) bool {
	s.mu.Lock()
	if gen != s.generation || s.fresh {
		s.mu.Unlock()
		return false
	}
	s.tasks = slices.Clone(tasks)
	s.loaded = true
	s.fetchedAt = fetchedAt
	s.mu.Unlock()

	s.notify()
	return true
}

// ApplyLocalCompletion records that a completion for taskID is in flight.
// The task's status is not changed; only the pending marker is set. It
// returns false if a completion is already pending for the task.
func (s *Store) ApplyLocalCompletion(taskID domain.ID) bool {
	s.mu.Lock()
	if _, ok := s.pending[taskID]; ok {
		s.mu.Unlock()
		return false
	}
	s.pending[taskID] = struct{}{}
	s.mu.Unlock()

	s.notify()
	return true
}

// ClearCompletion removes the pending marker for taskID.
func (s *Store) ClearCompletion(taskID domain.ID) {
	s.mu.Lock()
	if _, ok := s.pending[taskID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, taskID)
	s.mu.Unlock()

	s.notify()
}

// Task returns a copy of the task with id from the current collection.
func (s *Store) Task(id domain.ID) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	pending := make(map[domain.ID]struct{}, len(s.pending))
	for id := range s.pending {
		pending[id] = struct{}{}
	}
	return Snapshot{
		ProjectID:  s.projectID,
		Generation: s.generation,
		Tasks:      slices.Clone(s.tasks),
		Pending:    pending,
		Loaded:     s.loaded,
		Fresh:      s.fresh,
		FetchedAt:  s.fetchedAt,
	}
}

// Filtered returns the current tasks filtered and sorted by q.
func (s *Store) Filtered(q Query) []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filter(s.tasks, q)
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners run synchronously on the goroutine that changed the store, one
// delivery at a time, and must not call back into mutating store methods.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// notify delivers the current state. Deliveries are serialized and each one
// reads the state when it starts, so the last delivery is never older than
// the last mutation.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.listenersMu.Lock()
	if len(s.listeners) == 0 {
		s.listenersMu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	snap := s.Snapshot()
	for _, l := range listeners {
		l(snap)
	}
}
