package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/poller"
)

// TaskSource fetches a project's tasks.
type TaskSource interface {
	ListTasks(ctx context.Context, projectID domain.ID) ([]domain.Task, error)
}

// SnapshotCache persists the last successful fetch per project.
type SnapshotCache interface {
	SaveTasks(ctx context.Context, projectID domain.ID, tasks []domain.Task, fetchedAt time.Time) error
	LoadTasks(ctx context.Context, projectID domain.ID) ([]domain.Task, time.Time, error)
	DeleteTasks(ctx context.Context, projectID domain.ID) error
}

// DefaultTaskPollInterval is the task board refresh interval.
const DefaultTaskPollInterval = 10 * time.Second

// Refresher keeps the store in sync with the remote task list for the
// selected project.
type Refresher struct {
	source   TaskSource
	store    *Store
	cache    SnapshotCache
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	nextCall uint64
	inflight map[uint64]inflightFetch
	handle   *poller.Handle
}

type inflightFetch struct {
	gen    uint64
	cancel context.CancelFunc
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithSnapshotCache persists fetches and seeds new selections from cache.
func WithSnapshotCache(cache SnapshotCache) RefresherOption {
	return func(r *Refresher) { r.cache = cache }
}

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRefresherLogger sets the logger.
func WithRefresherLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRefresher binds source to store.
func NewRefresher(source TaskSource, store *Store, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:   source,
		store:    store,
		interval: DefaultTaskPollInterval,
		logger:   slog.Default(),
		inflight: make(map[uint64]inflightFetch),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins periodic refreshes. Stop the returned handle on view exit.
func (r *Refresher) Start(ctx context.Context) *poller.Handle {
	h := poller.New("tasks", r.interval, r.Refresh, r.logger).Start(ctx)
	r.mu.Lock()
	r.handle = h
	r.mu.Unlock()
	return h
}

// Select changes the selected project. Any fetch still in flight for the
// previous selection is cancelled and its result will be discarded. A cached
// snapshot seeds the new selection and a refresh is triggered.
func (r *Refresher) Select(ctx context.Context, projectID domain.ID) uint64 {
	gen := r.store.Select(projectID)

	r.mu.Lock()
	for call, f := range r.inflight {
		if f.gen != gen {
			f.cancel()
			delete(r.inflight, call)
		}
	}
	h := r.handle
	r.mu.Unlock()

	r.logger.Info("Project selected", "project_id", projectID, "generation", gen)

	if r.cache != nil && !projectID.IsZero() {
		tasks, fetchedAt, err := r.cache.LoadTasks(ctx, projectID)
		switch {
		case err != nil:
			r.logger.Warn("Failed to load cached tasks", "project_id", projectID, "error", err)
		case tasks != nil:
			if r.store.Seed(gen, tasks, fetchedAt) {
				r.logger.Debug("Seeded tasks from cache", "project_id", projectID, "count", len(tasks))
			}
		}
	}

	if h != nil {
		h.Trigger()
	}
	return gen
}

// Refresh fetches the tasks of the project selected when the call starts and
// applies them unless the selection changed in the meantime. Stale results are
// dropped without error.
func (r *Refresher) Refresh(ctx context.Context) error {
	projectID, gen := r.store.Selection()
	if projectID.IsZero() {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.nextCall++
	call := r.nextCall
	r.inflight[call] = inflightFetch{gen: gen, cancel: cancel}
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.inflight, call)
		r.mu.Unlock()
	}()

	tasks, err := r.source.ListTasks(ctx, projectID)
	if err != nil {
		if _, current := r.store.Selection(); current != gen {
			r.logger.Debug("Discarding failed fetch for previous selection", "project_id", projectID)
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) && r.cache != nil {
			if delErr := r.cache.DeleteTasks(ctx, projectID); delErr != nil {
				r.logger.Warn("Failed to drop task snapshot", "project_id", projectID, "error", delErr)
			}
		}
		return fmt.Errorf("fetch tasks for project %s: %w", projectID, err)
	}

	if !r.store.ReplaceAll(gen, tasks) {
		r.logger.Debug("Discarding stale task fetch", "project_id", projectID, "generation", gen)
		return nil
	}

	if r.cache != nil {
		if err := r.cache.SaveTasks(ctx, projectID, tasks, time.Now()); err != nil {
			r.logger.Warn("Failed to persist task snapshot", "project_id", projectID, "error", err)
		}
	}
	return nil
}

// RequestRefresh asks the running poll loop for an immediate refresh. It
// returns false if the loop has not been started.
func (r *Refresher) RequestRefresh() bool {
	r.mu.Lock()
	h := r.handle
	r.mu.Unlock()
	if h == nil {
		return false
	}
	h.Trigger()
	return true
}
