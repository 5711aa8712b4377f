// Package store persists the last known board data so a restarted process can
// render before its first fetch completes.
package store

import (
	"context"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// Repository defines the snapshot persistence operations.
type Repository interface {
	// SaveProjects replaces the cached project list.
	SaveProjects(ctx context.Context, projects []domain.Project) error

	// LoadProjects returns the cached project list, empty if none.
	LoadProjects(ctx context.Context) ([]domain.Project, error)

	// SaveTasks stores the task collection last fetched for a project.
	SaveTasks(ctx context.Context, projectID domain.ID, tasks []domain.Task, fetchedAt time.Time) error

	// LoadTasks returns the cached collection for a project. Tasks are nil
	// when nothing is cached.
	LoadTasks(ctx context.Context, projectID domain.ID) ([]domain.Task, time.Time, error)

	// DeleteTasks drops the cached collection for a project.
	DeleteTasks(ctx context.Context, projectID domain.ID) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
