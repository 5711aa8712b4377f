package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// Completer performs the remote completion of a task.
type Completer interface {
	CompleteTask(ctx context.Context, taskID domain.ID) (*domain.CompletionResult, error)
}

// ToastKind is the severity of a user-facing notice.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// Reporter surfaces user-facing notices.
type Reporter interface {
	Report(kind ToastKind, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(kind ToastKind, message string)

// Report calls f.
func (f ReporterFunc) Report(kind ToastKind, message string) { f(kind, message) }

const completionFailedMessage = "Failed to complete task. Please try again."

// Coordinator applies task completions. A completed task only changes status
// once the follow-up refresh lands; locally only the pending marker is set.
type Coordinator struct {
	store     *Store
	completer Completer
	refresher *Refresher
	reporter  Reporter
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator. reporter and logger may be nil.
func NewCoordinator(store *Store, completer Completer, refresher *Refresher, reporter Reporter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = ReporterFunc(func(ToastKind, string) {})
	}
	return &Coordinator{
		store:     store,
		completer: completer,
		refresher: refresher,
		reporter:  reporter,
		logger:    logger,
	}
}

// CompleteTask marks taskID complete on the backend. A second call for the
// same task while the first is pending returns ErrCompletionInFlight without
// contacting the backend.
func (c *Coordinator) CompleteTask(ctx context.Context, taskID domain.ID) (*domain.CompletionResult, error) {
	if !c.store.ApplyLocalCompletion(taskID) {
		return nil, fmt.Errorf("%w: %s", ErrCompletionInFlight, taskID)
	}
	defer c.store.ClearCompletion(taskID)

	result, err := c.completer.CompleteTask(ctx, taskID)
	if err != nil {
		c.logger.Warn("Failed to complete task", "task_id", taskID, "error", err)
		c.reporter.Report(ToastError, completionFailedMessage)
		return nil, fmt.Errorf("complete task %s: %w", taskID, err)
	}

	c.logger.Info("Task completed", "task_id", taskID)
	msg := result.Message
	if msg == "" {
		msg = "Task completed"
	}
	c.reporter.Report(ToastSuccess, msg)

	if c.refresher != nil && !c.refresher.RequestRefresh() {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.logger.Warn("Refresh after completion failed", "task_id", taskID, "error", err)
		}
	}
	return result, nil
}
