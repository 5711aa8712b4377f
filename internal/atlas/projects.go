package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// ListProjects returns the projects visible to the caller.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return getList[domain.Project](ctx, c, "/api/v1/projects", nil, nil)
}

// ListTasks returns the tasks of a project. Reads bypass intermediary caches
// so a poll always sees the latest state.
func (c *Client) ListTasks(ctx context.Context, projectID domain.ID) ([]domain.Task, error) {
	query := url.Values{"_t": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}
	header := http.Header{
		"Cache-Control": {"no-cache"},
		"Pragma":        {"no-cache"},
	}
	return getList[domain.Task](ctx, c, "/api/v1/projects/"+url.PathEscape(projectID.String())+"/tasks", query, header)
}

// CompleteTask marks a task as completed.
func (c *Client) CompleteTask(ctx context.Context, taskID domain.ID) (*domain.CompletionResult, error) {
	path := "/api/v1/projects/tasks/" + url.PathEscape(taskID.String()) + "/complete"
	data, err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil)
	if err != nil {
		return nil, err
	}

	var result domain.CompletionResult
	if err := decodeObject(path, data, &result); err != nil {
		return nil, err
	}
	// Some deployments return the bare task instead of a wrapper.
	if result.Task == nil {
		var bare struct {
			ID domain.ID `json:"id"`
		}
		if err := json.Unmarshal(bytes.TrimSpace(data), &bare); err == nil && !bare.ID.IsZero() {
			var task domain.Task
			if err := json.Unmarshal(data, &task); err == nil {
				result.Task = &task
			}
		}
	}
	return &result, nil
}

// UpdateTask applies a partial edit to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID domain.ID, update domain.TaskUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	body := map[string]any{}
	if update.Status != nil {
		body["status"] = *update.Status
	}
	if update.AssigneeID != nil {
		body["assigned_to"] = userRef(*update.AssigneeID)
	}
	if update.ProgressPercentage != nil {
		body["progress_percentage"] = *update.ProgressPercentage
	}
	if update.EstimateHours != nil {
		body["estimate_hours"] = *update.EstimateHours
	}
	if update.DueDate != nil {
		body["due_date"] = update.DueDate.Format("2006-01-02")
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/projects/tasks/"+url.PathEscape(taskID.String()), nil, body, nil)
	return err
}

// BulkAssignTasks assigns every task in taskIDs to one user.
func (c *Client) BulkAssignTasks(ctx context.Context, taskIDs []domain.ID, userID domain.ID) (*domain.BulkAssignResult, error) {
	if len(taskIDs) == 0 {
		return nil, fmt.Errorf("%w: no tasks to assign", domain.ErrInvalidInput)
	}
	path := "/api/v1/projects/tasks/bulk-assign"
	data, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{
		"task_ids":    taskIDs,
		"assigned_to": userRef(userID),
	}, nil)
	if err != nil {
		return nil, err
	}
	var result domain.BulkAssignResult
	if err := decodeObject(path, data, &result); err != nil {
		return nil, err
	}
	if result.FailedTasks == nil {
		result.FailedTasks = []domain.BulkAssignFailure{}
	}
	return &result, nil
}

// ProjectRisks returns the risk summary of a project.
func (c *Client) ProjectRisks(ctx context.Context, projectID domain.ID) (*domain.RiskSummary, error) {
	path := "/api/v1/projects/" + url.PathEscape(projectID.String()) + "/risks"
	data, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var summary domain.RiskSummary
	if err := decodeObject(path, data, &summary); err != nil {
		return nil, err
	}
	if summary.HighRiskTasks == nil {
		summary.HighRiskTasks = []domain.RiskTask{}
	}
	return &summary, nil
}
