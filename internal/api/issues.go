package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

type issuesResponse struct {
	ProjectID domain.ID      `json:"project_id"`
	Issues    []domain.Issue `json:"issues"`
}

// ListIssues returns the selected project's issues, optionally by status.
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	projectID, _ := h.Board.Selection()
	if projectID.IsZero() {
		h.writeError(w, board.ErrNoSelection)
		return
	}
	var status domain.IssueStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var ok bool
		if status, ok = domain.ParseIssueStatus(raw); !ok {
			Error(w, http.StatusBadRequest, "unknown issue status")
			return
		}
	}

	issues, err := h.Backend.ListIssues(r.Context(), projectID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	JSON(w, http.StatusOK, issuesResponse{ProjectID: projectID, Issues: issues})
}

// ReportIssue raises an issue. The selected project is used when the body
// names none.
func (h *Handler) ReportIssue(w http.ResponseWriter, r *http.Request) {
	var issue domain.NewIssue
	if err := decodeBody(w, r, &issue); err != nil {
		Error(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if issue.ProjectID.IsZero() {
		issue.ProjectID, _ = h.Board.Selection()
	}
	if err := issue.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.Backend.ReportIssue(r.Context(), issue)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Issue reported", "issue_id", created.ID, "project_id", issue.ProjectID)
	JSON(w, http.StatusCreated, created)
}

type assignRequest struct {
	AssignedTo domain.ID `json:"assigned_to"`
}

// AssignIssue assigns an issue to a user.
func (h *Handler) AssignIssue(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(w, r, &req); err != nil || req.AssignedTo.IsZero() {
		Error(w, http.StatusBadRequest, "assigned_to is required")
		return
	}
	issueID := domain.ID(chi.URLParam(r, "id"))
	if err := h.Backend.AssignIssue(r.Context(), issueID, req.AssignedTo); err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"issue_id": issueID, "assigned_to": req.AssignedTo})
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

// ResolveIssue closes an issue.
func (h *Handler) ResolveIssue(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Resolution) == "" {
		Error(w, http.StatusBadRequest, "resolution is required")
		return
	}
	issueID := domain.ID(chi.URLParam(r, "id"))
	if err := h.Backend.ResolveIssue(r.Context(), issueID, req.Resolution); err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"issue_id": issueID, "status": domain.IssueResolved})
}
