package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

type projectsResponse struct {
	Projects []domain.Project `json:"projects"`
	// Cached is set when the live fetch failed and the list came from the
	// snapshot database.
	Cached bool `json:"cached"`
}

// ListProjects returns the user's projects. The last good list is served when
// the backend cannot be reached.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.Backend.ListProjects(ctx)
	if err == nil {
		if saveErr := h.Repo.SaveProjects(ctx, projects); saveErr != nil {
			h.logger.Warn("Failed to cache projects", "error", saveErr)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		JSON(w, http.StatusOK, projectsResponse{Projects: projects})
		return
	}

	cached, loadErr := h.Repo.LoadProjects(ctx)
	if loadErr != nil || len(cached) == 0 {
		h.writeError(w, err)
		return
	}
	h.logger.Warn("Serving cached projects", "error", err, "count", len(cached))
	JSON(w, http.StatusOK, projectsResponse{Projects: cached, Cached: true})
}

type selectionRequest struct {
	ProjectID domain.ID `json:"project_id"`
}

// PutSelection selects the project whose tasks are synced.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.ProjectID.String()) == "" {
		Error(w, http.StatusBadRequest, "project_id is required")
		return
	}

	gen := h.Selector.Select(r.Context(), req.ProjectID)
	h.logger.Info("Project selected", "project_id", req.ProjectID, "generation", gen)
	JSON(w, http.StatusOK, map[string]interface{}{
		"project_id": req.ProjectID,
		"generation": gen,
	})
}

func parseQuery(r *http.Request) (board.Query, error) {
	v := r.URL.Query()
	return board.ParseQuery(v.Get("q"), v.Get("status"), v.Get("sort"))
}

// GetBoard returns the projected board of the selected project.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap := h.Board.Snapshot()
	if snap.ProjectID.IsZero() {
		h.writeError(w, board.ErrNoSelection)
		return
	}
	JSON(w, http.StatusOK, board.ProjectFiltered(snap, q))
}

type tasksResponse struct {
	ProjectID domain.ID     `json:"project_id"`
	Tasks     []domain.Task `json:"tasks"`
	Total     int           `json:"total"`
	Loaded    bool          `json:"loaded"`
	FetchedAt time.Time     `json:"fetched_at,omitzero"`
}

// ListTasks returns the filtered, sorted tasks of the selected project.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	snap := h.Board.Snapshot()
	if snap.ProjectID.IsZero() {
		h.writeError(w, board.ErrNoSelection)
		return
	}
	JSON(w, http.StatusOK, tasksResponse{
		ProjectID: snap.ProjectID,
		Tasks:     board.Filter(snap.Tasks, q),
		Total:     len(snap.Tasks),
		Loaded:    snap.Loaded,
		FetchedAt: snap.FetchedAt,
	})
}

// CompleteTask completes a task. The board reflects the new status after the
// follow-up refresh.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := domain.ID(chi.URLParam(r, "id"))

	result, err := h.Completer.CompleteTask(r.Context(), taskID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

type updateTaskRequest struct {
	Status             string       `json:"status,omitempty"`
	AssignedTo         domain.ID    `json:"assigned_to,omitempty"`
	ProgressPercentage *int         `json:"progress_percentage,omitempty"`
	EstimateHours      *float64     `json:"estimate_hours,omitempty"`
	DueDate            *domain.Date `json:"due_date,omitempty"`
}

// UpdateTask edits a task and asks for a board refresh.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body")
		return
	}
	update := domain.TaskUpdate{
		ProgressPercentage: req.ProgressPercentage,
		EstimateHours:      req.EstimateHours,
		DueDate:            req.DueDate,
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			Error(w, http.StatusBadRequest, "unknown status")
			return
		}
		update.Status = &status
	}
	if !req.AssignedTo.IsZero() {
		update.AssigneeID = &req.AssignedTo
	}
	if err := update.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	taskID := domain.ID(chi.URLParam(r, "id"))
	if err := h.Backend.UpdateTask(r.Context(), taskID, update); err != nil {
		h.writeError(w, err)
		return
	}
	h.requestRefresh()
	JSON(w, http.StatusOK, map[string]any{"task_id": taskID, "updated": true})
}

type bulkAssignRequest struct {
	TaskIDs    []domain.ID `json:"task_ids"`
	AssignedTo domain.ID   `json:"assigned_to"`
}

// BulkAssignTasks assigns several tasks to one user.
func (h *Handler) BulkAssignTasks(w http.ResponseWriter, r *http.Request) {
	var req bulkAssignRequest
	if err := decodeBody(w, r, &req); err != nil || req.AssignedTo.IsZero() {
		Error(w, http.StatusBadRequest, "task_ids and assigned_to are required")
		return
	}
	result, err := h.Backend.BulkAssignTasks(r.Context(), req.TaskIDs, req.AssignedTo)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.requestRefresh()
	JSON(w, http.StatusOK, result)
}

func (h *Handler) requestRefresh() {
	if h.Refresh != nil {
		h.Refresh.RequestRefresh()
	}
}

type risksResponse struct {
	ProjectID domain.ID           `json:"project_id"`
	Summary   *domain.RiskSummary `json:"summary"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// GetRisks returns the risk summary of the selected project, fetching it if
// the poller has not produced one yet.
func (h *Handler) GetRisks(w http.ResponseWriter, r *http.Request) {
	projectID, _ := h.Board.Selection()
	if projectID.IsZero() {
		h.writeError(w, board.ErrNoSelection)
		return
	}

	summary, fetchedAt, ok := h.Risks.Latest(projectID)
	if !ok {
		if err := h.Risks.Refresh(r.Context()); err != nil {
			h.writeError(w, err)
			return
		}
		if summary, fetchedAt, ok = h.Risks.Latest(projectID); !ok {
			Error(w, http.StatusConflict, "selection_changed")
			return
		}
	}
	JSON(w, http.StatusOK, risksResponse{ProjectID: projectID, Summary: summary, FetchedAt: fetchedAt})
}
