// Package api provides HTTP handlers for the local board API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/atlas"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/chat"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/feeds"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/store"
)

// Backend is the subset of the Atlas client served directly by the API.
type Backend interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id domain.ID) error
	MarkAllNotificationsRead(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id domain.ID) error
	UpdateTask(ctx context.Context, taskID domain.ID, update domain.TaskUpdate) error
	BulkAssignTasks(ctx context.Context, taskIDs []domain.ID, userID domain.ID) (*domain.BulkAssignResult, error)
	ReportIssue(ctx context.Context, issue domain.NewIssue) (*domain.Issue, error)
	ListIssues(ctx context.Context, projectID domain.ID, status domain.IssueStatus) ([]domain.Issue, error)
	AssignIssue(ctx context.Context, issueID, userID domain.ID) error
	ResolveIssue(ctx context.Context, issueID domain.ID, resolution string) error
}

// Selector switches the selected project.
type Selector interface {
	Select(ctx context.Context, projectID domain.ID) uint64
}

// RefreshRequester schedules an immediate board refresh.
type RefreshRequester interface {
	RequestRefresh() bool
}

// Completer completes a task.
type Completer interface {
	CompleteTask(ctx context.Context, taskID domain.ID) (*domain.CompletionResult, error)
}

// ChatService is the chat view owned by the daemon.
type ChatService interface {
	Open(ctx context.Context, scope chat.Scope) error
	SendMessage(ctx context.Context, content string) (chat.Outbound, error)
	CloseView()
	State() chat.State
}

// Deps are the collaborators of the Handler. Refresh, Chat and Events may be
// nil.
type Deps struct {
	Backend   Backend
	Repo      store.Repository
	Board     *board.Store
	Selector  Selector
	Completer Completer
	Refresh   RefreshRequester
	Risks     *feeds.Risks
	Unread    *feeds.Unread
	Chat      ChatService
	Events    http.Handler
}

// Handler serves the local API.
type Handler struct {
	Deps
	logger        *slog.Logger
	healthTimeout time.Duration
}

// NewHandler creates a Handler.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Deps: deps, logger: logger, healthTimeout: 5 * time.Second}
}

// RegisterRoutes registers every API route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", h.ListProjects)
		r.Put("/selection", h.PutSelection)
		r.Get("/board", h.GetBoard)
		r.Get("/tasks", h.ListTasks)
		r.Patch("/tasks/{id}", h.UpdateTask)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Post("/tasks/bulk-assign", h.BulkAssignTasks)
		r.Get("/risks", h.GetRisks)

		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.ListIssues)
			r.Post("/", h.ReportIssue)
			r.Post("/{id}/assign", h.AssignIssue)
			r.Post("/{id}/resolve", h.ResolveIssue)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/unread-count", h.UnreadCount)
			r.Post("/mark-all-read", h.MarkAllRead)
			r.Post("/{id}/read", h.MarkRead)
			r.Delete("/{id}", h.DeleteNotification)
		})

		if h.Chat != nil {
			r.Route("/chat", func(r chi.Router) {
				r.Get("/", h.ChatState)
				r.Post("/open", h.OpenChat)
				r.Post("/messages", h.SendChatMessage)
				r.Post("/close", h.CloseChat)
			})
		}
	})

	if h.Events != nil {
		r.Get("/ws/events", h.Events.ServeHTTP)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps err onto a status code.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *atlas.APIError
	switch {
	case errors.Is(err, credential.ErrMissingCredential):
		Error(w, http.StatusPreconditionFailed, "missing_credential")
	case errors.Is(err, board.ErrCompletionInFlight):
		Error(w, http.StatusConflict, "completion_in_progress")
	case errors.Is(err, board.ErrNoSelection):
		Error(w, http.StatusConflict, "no_project_selected")
	case errors.Is(err, chat.ErrNotConnected):
		Error(w, http.StatusConflict, "chat_not_connected")
	case errors.Is(err, board.ErrInvalidQuery),
		errors.Is(err, chat.ErrInvalidScope),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, domain.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		JSON(w, apiErr.StatusCode, map[string]string{"error": "upstream_rejected", "detail": apiErr.Detail})
	case errors.Is(err, atlas.ErrTransport), errors.Is(err, atlas.ErrMalformedResponse):
		h.logger.Warn("Upstream request failed", "error", err)
		Error(w, http.StatusBadGateway, "upstream_unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusGatewayTimeout, "upstream_timeout")
	default:
		h.logger.Error("Request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Health returns the health status of the API and its snapshot database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.Repo.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if projectID, _ := h.Board.Selection(); !projectID.IsZero() {
		snap := h.Board.Snapshot()
		status["project_id"] = projectID
		status["board_fresh"] = snap.Fresh
	}

	JSON(w, statusCode, status)
}
