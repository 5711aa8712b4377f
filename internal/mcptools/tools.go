package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/atlas"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// Backend is the part of the Atlas client called directly by tools.
type Backend interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ProjectRisks(ctx context.Context, projectID domain.ID) (*domain.RiskSummary, error)
	ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id domain.ID) error
	ListOnlineUsers(ctx context.Context) ([]domain.OnlineUser, error)
	UpdateTask(ctx context.Context, taskID domain.ID, update domain.TaskUpdate) error
	BulkAssignTasks(ctx context.Context, taskIDs []domain.ID, userID domain.ID) (*domain.BulkAssignResult, error)
	ReportIssue(ctx context.Context, issue domain.NewIssue) (*domain.Issue, error)
	ListIssues(ctx context.Context, projectID domain.ID, status domain.IssueStatus) ([]domain.Issue, error)
	AssignIssue(ctx context.Context, issueID, userID domain.ID) error
	ResolveIssue(ctx context.Context, issueID domain.ID, resolution string) error
}

// Tools holds what the tool handlers need. The board store mirrors the last
// project a tool asked about.
type Tools struct {
	Backend        Backend
	Store          *board.Store
	Refresher      *board.Refresher
	Coordinator    *board.Coordinator
	DefaultProject domain.ID

	mu sync.Mutex
}

// --- Input types ---

type ProjectInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project ID; defaults to the configured project"`
}

type ListTasksInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project ID; defaults to the configured project"`
	Status    string `json:"status,omitempty" jsonschema:"Filter by status: todo, in_progress, done or all"`
	Query     string `json:"query,omitempty" jsonschema:"Case-insensitive text matched against title and description"`
	Sort      string `json:"sort,omitempty" jsonschema:"Sort key: default, title, dueDate or priority"`
}

type CompleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"ID of the task to complete"`
}

type NotificationsInput struct {
	UnreadOnly bool `json:"unread_only,omitempty" jsonschema:"Only return unread notifications"`
}

type NotificationInput struct {
	NotificationID string `json:"notification_id" jsonschema:"ID of the notification"`
}

type UpdateTaskInput struct {
	TaskID     string `json:"task_id" jsonschema:"ID of the task to update"`
	Status     string `json:"status,omitempty" jsonschema:"New status: todo, in_progress or done"`
	AssignedTo string `json:"assigned_to,omitempty" jsonschema:"User ID to assign the task to"`
	Progress   *int   `json:"progress_percentage,omitempty" jsonschema:"Progress from 0 to 100"`
}

type BulkAssignInput struct {
	TaskIDs    []string `json:"task_ids" jsonschema:"IDs of the tasks to assign"`
	AssignedTo string   `json:"assigned_to" jsonschema:"User ID to assign every task to"`
}

type ReportIssueInput struct {
	ProjectID   string `json:"project_id,omitempty" jsonschema:"Project ID; defaults to the configured project"`
	TaskID      string `json:"task_id,omitempty" jsonschema:"Task the issue relates to"`
	Title       string `json:"title" jsonschema:"Issue title"`
	Description string `json:"description" jsonschema:"Issue description"`
	IssueType   string `json:"issue_type" jsonschema:"One of blocker, bug or question"`
	Priority    string `json:"priority" jsonschema:"One of low, medium, high or critical"`
}

type ListIssuesInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Project ID; defaults to the configured project"`
	Status    string `json:"status,omitempty" jsonschema:"Filter by status: open, in_progress or resolved"`
}

type AssignIssueInput struct {
	IssueID    string `json:"issue_id" jsonschema:"ID of the issue"`
	AssignedTo string `json:"assigned_to" jsonschema:"User ID to assign the issue to"`
}

type ResolveIssueInput struct {
	IssueID    string `json:"issue_id" jsonschema:"ID of the issue"`
	Resolution string `json:"resolution" jsonschema:"How the issue was resolved"`
}

// --- Handlers ---

func (t *Tools) ListProjects(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	projects, err := t.Backend.ListProjects(ctx)
	if err != nil {
		return failure("list projects", err), nil, nil
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return toolJSON(projects)
}

func (t *Tools) ListTasks(ctx context.Context, _ *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, any, error) {
	q, err := board.ParseQuery(input.Query, input.Status, input.Sort)
	if err != nil {
		return toolError("%v", err), nil, nil
	}
	snap, res := t.load(ctx, input.ProjectID)
	if res != nil {
		return res, nil, nil
	}
	return toolJSON(board.Filter(snap.Tasks, q))
}

func (t *Tools) GetBoard(ctx context.Context, _ *mcp.CallToolRequest, input ProjectInput) (*mcp.CallToolResult, any, error) {
	snap, res := t.load(ctx, input.ProjectID)
	if res != nil {
		return res, nil, nil
	}
	return toolJSON(board.Project(snap))
}

func (t *Tools) CompleteTask(ctx context.Context, _ *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.TaskID) == "" {
		return toolError("task_id is required"), nil, nil
	}

	result, err := t.Coordinator.CompleteTask(ctx, domain.ID(input.TaskID))
	if err != nil {
		if errors.Is(err, board.ErrCompletionInFlight) {
			return toolError("Task %s is already being completed", input.TaskID), nil, nil
		}
		return failure("complete task", err), nil, nil
	}
	return toolJSON(result)
}

func (t *Tools) GetProjectRisks(ctx context.Context, _ *mcp.CallToolRequest, input ProjectInput) (*mcp.CallToolResult, any, error) {
	projectID, res := t.project(input.ProjectID)
	if res != nil {
		return res, nil, nil
	}
	summary, err := t.Backend.ProjectRisks(ctx, projectID)
	if err != nil {
		return failure("get project risks", err), nil, nil
	}
	return toolJSON(summary)
}

func (t *Tools) GetNotifications(ctx context.Context, _ *mcp.CallToolRequest, input NotificationsInput) (*mcp.CallToolResult, any, error) {
	items, err := t.Backend.ListNotifications(ctx, input.UnreadOnly)
	if err != nil {
		return failure("list notifications", err), nil, nil
	}
	if len(items) == 0 {
		return toolText("No notifications."), nil, nil
	}
	return toolJSON(items)
}

func (t *Tools) MarkNotificationRead(ctx context.Context, _ *mcp.CallToolRequest, input NotificationInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.NotificationID) == "" {
		return toolError("notification_id is required"), nil, nil
	}
	if err := t.Backend.MarkNotificationRead(ctx, domain.ID(input.NotificationID)); err != nil {
		return failure("mark notification read", err), nil, nil
	}
	return toolText(fmt.Sprintf("Notification %s marked as read.", input.NotificationID)), nil, nil
}

func (t *Tools) GetOnlineUsers(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	users, err := t.Backend.ListOnlineUsers(ctx)
	if err != nil {
		return failure("list online users", err), nil, nil
	}
	if users == nil {
		users = []domain.OnlineUser{}
	}
	return toolJSON(users)
}

func (t *Tools) UpdateTask(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTaskInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.TaskID) == "" {
		return toolError("task_id is required"), nil, nil
	}
	update := domain.TaskUpdate{ProgressPercentage: input.Progress}
	if input.Status != "" {
		status, ok := domain.ParseStatus(input.Status)
		if !ok {
			return toolError("unknown status %q", input.Status), nil, nil
		}
		update.Status = &status
	}
	if id := domain.ID(strings.TrimSpace(input.AssignedTo)); !id.IsZero() {
		update.AssigneeID = &id
	}

	if err := t.Backend.UpdateTask(ctx, domain.ID(input.TaskID), update); err != nil {
		return failure("update task", err), nil, nil
	}
	t.refreshSelection(ctx)
	return toolText(fmt.Sprintf("Task %s updated.", input.TaskID)), nil, nil
}

func (t *Tools) BulkAssignTasks(ctx context.Context, _ *mcp.CallToolRequest, input BulkAssignInput) (*mcp.CallToolResult, any, error) {
	assignee := domain.ID(strings.TrimSpace(input.AssignedTo))
	if len(input.TaskIDs) == 0 || assignee.IsZero() {
		return toolError("task_ids and assigned_to are required"), nil, nil
	}
	ids := make([]domain.ID, 0, len(input.TaskIDs))
	for _, id := range input.TaskIDs {
		ids = append(ids, domain.ID(id))
	}

	result, err := t.Backend.BulkAssignTasks(ctx, ids, assignee)
	if err != nil {
		return failure("bulk assign tasks", err), nil, nil
	}
	t.refreshSelection(ctx)
	return toolJSON(result)
}

func (t *Tools) ReportIssue(ctx context.Context, _ *mcp.CallToolRequest, input ReportIssueInput) (*mcp.CallToolResult, any, error) {
	projectID, res := t.project(input.ProjectID)
	if res != nil {
		return res, nil, nil
	}
	issue := domain.NewIssue{
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		IssueType:   domain.IssueType(strings.ToLower(input.IssueType)),
		Priority:    domain.IssuePriority(strings.ToLower(input.Priority)),
	}
	if id := domain.ID(strings.TrimSpace(input.TaskID)); !id.IsZero() {
		issue.TaskID = &id
	}
	if err := issue.Validate(); err != nil {
		return toolError("%v", err), nil, nil
	}

	created, err := t.Backend.ReportIssue(ctx, issue)
	if err != nil {
		return failure("report issue", err), nil, nil
	}
	return toolText(fmt.Sprintf("Issue %s reported. Relevant team members were notified.", created.ID)), nil, nil
}

func (t *Tools) ListIssues(ctx context.Context, _ *mcp.CallToolRequest, input ListIssuesInput) (*mcp.CallToolResult, any, error) {
	projectID, res := t.project(input.ProjectID)
	if res != nil {
		return res, nil, nil
	}
	var status domain.IssueStatus
	if input.Status != "" {
		var ok bool
		if status, ok = domain.ParseIssueStatus(input.Status); !ok {
			return toolError("unknown issue status %q", input.Status), nil, nil
		}
	}

	issues, err := t.Backend.ListIssues(ctx, projectID, status)
	if err != nil {
		return failure("list issues", err), nil, nil
	}
	if len(issues) == 0 {
		return toolText("No issues found."), nil, nil
	}
	return toolJSON(issues)
}

func (t *Tools) AssignIssue(ctx context.Context, _ *mcp.CallToolRequest, input AssignIssueInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.IssueID) == "" || strings.TrimSpace(input.AssignedTo) == "" {
		return toolError("issue_id and assigned_to are required"), nil, nil
	}
	if err := t.Backend.AssignIssue(ctx, domain.ID(input.IssueID), domain.ID(input.AssignedTo)); err != nil {
		return failure("assign issue", err), nil, nil
	}
	return toolText(fmt.Sprintf("Issue %s assigned to user %s.", input.IssueID, input.AssignedTo)), nil, nil
}

func (t *Tools) ResolveIssue(ctx context.Context, _ *mcp.CallToolRequest, input ResolveIssueInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.IssueID) == "" || strings.TrimSpace(input.Resolution) == "" {
		return toolError("issue_id and resolution are required"), nil, nil
	}
	if err := t.Backend.ResolveIssue(ctx, domain.ID(input.IssueID), input.Resolution); err != nil {
		return failure("resolve issue", err), nil, nil
	}
	return toolText(fmt.Sprintf("Issue %s resolved.", input.IssueID)), nil, nil
}

// --- Helpers ---

func (t *Tools) project(raw string) (domain.ID, *mcp.CallToolResult) {
	id := domain.ID(strings.TrimSpace(raw))
	if id.IsZero() {
		id = t.DefaultProject
	}
	if id.IsZero() {
		return "", toolError("project_id is required (no default project configured)")
	}
	return id, nil
}

// refreshSelection refetches the mirrored project after a task write.
func (t *Tools) refreshSelection(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, _ := t.Store.Selection(); current.IsZero() {
		return
	}
	_ = t.Refresher.Refresh(ctx)
}

// load selects the project if needed and refreshes the store from the
// backend before returning its snapshot.
func (t *Tools) load(ctx context.Context, raw string) (board.Snapshot, *mcp.CallToolResult) {
	projectID, res := t.project(raw)
	if res != nil {
		return board.Snapshot{}, res
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if current, _ := t.Store.Selection(); current != projectID {
		t.Refresher.Select(ctx, projectID)
	}
	if err := t.Refresher.Refresh(ctx); err != nil {
		snap := t.Store.Snapshot()
		if !snap.Loaded {
			return board.Snapshot{}, failure("load tasks", err)
		}
	}
	return t.Store.Snapshot(), nil
}

// failure turns err into a tool error a user can act on.
func failure(action string, err error) *mcp.CallToolResult {
	var apiErr *atlas.APIError
	switch {
	case errors.Is(err, credential.ErrMissingCredential):
		return toolError("Not signed in to Atlas. Run `atlasctl login <token>` first.")
	case errors.As(err, &apiErr):
		if apiErr.Detail != "" {
			return toolError("Failed to %s: Atlas returned %d: %s", action, apiErr.StatusCode, apiErr.Detail)
		}
		return toolError("Failed to %s: Atlas returned %d", action, apiErr.StatusCode)
	case errors.Is(err, atlas.ErrTransport):
		return toolError("Failed to %s: Atlas is unreachable", action)
	}
	return toolError("Failed to %s: %v", action, err)
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
