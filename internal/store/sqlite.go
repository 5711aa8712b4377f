package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to keep SQLITE_BUSY rare
	retry   shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the local API read while a poller writes.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS projects (
		project_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		position INTEGER NOT NULL,
		project_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_snapshots (
		project_id TEXT PRIMARY KEY,
		tasks_json TEXT NOT NULL,
		task_count INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_task_snapshots_fetched ON task_snapshots(fetched_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// write runs fn under the writer lock, retrying on SQLite conflicts.
func (s *SQLiteStore) write(ctx context.Context, op string, fn func() error) error {
	return shared.RetryOnConflict(ctx, s.retry, op, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return fn()
	})
}

// SaveProjects replaces the cached project list, keeping the given order.
func (s *SQLiteStore) SaveProjects(ctx context.Context, projects []domain.Project) error {
	return s.write(ctx, "save_projects", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
			return fmt.Errorf("clear projects: %w", err)
		}

		query := `
		INSERT INTO projects (project_id, name, description, position, project_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
		now := time.Now().Unix()
		for i, p := range projects {
			raw, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode project %s: %w", p.ID, err)
			}
			var description interface{}
			if p.Description != "" {
				description = p.Description
			}
			if _, err := tx.ExecContext(ctx, query, p.ID.String(), p.Name, description, i, string(raw), now); err != nil {
				return fmt.Errorf("insert project %s: %w", p.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit projects: %w", err)
		}
		return nil
	})
}

// LoadProjects returns the cached projects in their saved order.
func (s *SQLiteStore) LoadProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_json FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close project rows", "error", closeErr)
		}
	}()

	projects := []domain.Project{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.Warn("Skipping unreadable cached project", "error", err)
			continue
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// SaveTasks stores the collection fetched for a project, replacing any
// previous snapshot.
func (s *SQLiteStore) SaveTasks(ctx context.Context, projectID domain.ID, tasks []domain.Task, fetchedAt time.Time) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	query := `
	INSERT INTO task_snapshots (project_id, tasks_json, task_count, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(project_id) DO UPDATE SET
		tasks_json = excluded.tasks_json,
		task_count = excluded.task_count,
		fetched_at = excluded.fetched_at`

	return s.write(ctx, "save_tasks", func() error {
		_, err := s.db.ExecContext(ctx, query, projectID.String(), string(raw), len(tasks), fetchedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("upsert task snapshot: %w", err)
		}
		return nil
	})
}

// LoadTasks returns the cached collection for a project. A project with no
// snapshot yields nil tasks and a zero time.
func (s *SQLiteStore) LoadTasks(ctx context.Context, projectID domain.ID) ([]domain.Task, time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT tasks_json, fetched_at FROM task_snapshots WHERE project_id = ?`, projectID.String())

	var raw sql.NullString
	var fetchedAt int64
	err := row.Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("scan task snapshot: %w", err)
	}

	tasks := []domain.Task{}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &tasks); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode task snapshot: %w", err)
		}
	}
	return tasks, time.UnixMilli(fetchedAt), nil
}

// DeleteTasks drops the cached collection for a project.
func (s *SQLiteStore) DeleteTasks(ctx context.Context, projectID domain.ID) error {
	return s.write(ctx, "delete_tasks", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM task_snapshots WHERE project_id = ?`, projectID.String())
		if err != nil {
			return fmt.Errorf("delete task snapshot: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Debug("DeleteTasks affected 0 rows", "project_id", projectID)
		}
		return nil
	})
}
