// Package feeds caches the side panels of the board: the risk summary of the
// selected project and the unread notification count. Each feed is refreshed
// by its own poller.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// RiskSource fetches a project's risk summary.
type RiskSource interface {
	ProjectRisks(ctx context.Context, projectID domain.ID) (*domain.RiskSummary, error)
}

// Selection reports the selected project and its generation.
type Selection interface {
	Selection() (domain.ID, uint64)
}

// Risks caches the risk summary of the selected project.
type Risks struct {
	source    RiskSource
	selection Selection
	logger    *slog.Logger
	onChange  func(*domain.RiskSummary)

	mu        sync.RWMutex
	projectID domain.ID
	summary   *domain.RiskSummary
	fetchedAt time.Time
}

// NewRisks creates the risk feed. onChange may be nil.
func NewRisks(source RiskSource, selection Selection, onChange func(*domain.RiskSummary), logger *slog.Logger) *Risks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Risks{source: source, selection: selection, onChange: onChange, logger: logger}
}

// Refresh fetches the summary for the current selection. A result for a
// project that is no longer selected is dropped.
func (r *Risks) Refresh(ctx context.Context) error {
	projectID, gen := r.selection.Selection()
	if projectID.IsZero() {
		return nil
	}

	summary, err := r.source.ProjectRisks(ctx, projectID)
	if err != nil {
		return fmt.Errorf("fetch risks for project %s: %w", projectID, err)
	}

	if _, current := r.selection.Selection(); current != gen {
		r.logger.Debug("Discarding stale risk summary", "project_id", projectID)
		return nil
	}

	r.mu.Lock()
	r.projectID = projectID
	r.summary = summary
	r.fetchedAt = time.Now()
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange(summary)
	}
	return nil
}

// Latest returns the cached summary if it belongs to projectID.
func (r *Risks) Latest(projectID domain.ID) (*domain.RiskSummary, time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.summary == nil || r.projectID != projectID {
		return nil, time.Time{}, false
	}
	s := *r.summary
	return &s, r.fetchedAt, true
}

// UnreadCounter fetches the unread notification count.
type UnreadCounter interface {
	UnreadNotificationCount(ctx context.Context) (int, error)
}

// Unread caches the unread notification count.
type Unread struct {
	source   UnreadCounter
	logger   *slog.Logger
	onChange func(int)

	mu    sync.RWMutex
	count int
	known bool
}

// NewUnread creates the unread feed. onChange is called when the count
// changes and may be nil.
func NewUnread(source UnreadCounter, onChange func(int), logger *slog.Logger) *Unread {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unread{source: source, onChange: onChange, logger: logger}
}

// Refresh fetches the count.
func (u *Unread) Refresh(ctx context.Context) error {
	n, err := u.source.UnreadNotificationCount(ctx)
	if err != nil {
		return fmt.Errorf("fetch unread count: %w", err)
	}
	u.Set(n)
	return nil
}

// Set records a count learned elsewhere, such as after mark-all-read.
func (u *Unread) Set(n int) {
	u.mu.Lock()
	changed := !u.known || u.count != n
	u.count = n
	u.known = true
	u.mu.Unlock()

	if changed && u.onChange != nil {
		u.onChange(n)
	}
}

// Count returns the cached count and whether one has been fetched.
func (u *Unread) Count() (int, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.count, u.known
}
