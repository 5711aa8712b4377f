package domain

import "strings"

// Status is the board column a task belongs to. Values are the wire strings.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists the board statuses in column order.
var Statuses = []Status{StatusToDo, StatusInProgress, StatusDone}

// ParseStatus accepts the wire values as well as the snake_case aliases used
// by the CLI and tool filters. The second result is false for unknown input.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "to do", "todo", "to_do":
		return StatusToDo, true
	case "in progress", "in_progress", "inprogress":
		return StatusInProgress, true
	case "done":
		return StatusDone, true
	}
	return "", false
}

// RiskLevel is the coarse risk category assigned by the backend risk assessor.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Task is a unit of work on a project board.
type Task struct {
	ID                 ID        `json:"id"`
	ProjectID          ID        `json:"project_id,omitempty"`
	StoryID            ID        `json:"story_id,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Status             Status    `json:"status"`
	AssigneeID         *ID       `json:"assignee_id,omitempty"`
	DueDate            *Date     `json:"due_date,omitempty"`
	EstimateHours      *float64  `json:"estimate_hours,omitempty"`
	ProgressPercentage *int      `json:"progress_percentage,omitempty"`
	RiskLevel          RiskLevel `json:"risk_level,omitempty"`
	Priority           *int      `json:"priority,omitempty"`
}

// DisplayProgress returns the progress to render. A Done task always shows
// 100 regardless of the stored value; otherwise the stored value is clamped to
// 0..100 and a missing value shows 0. The stored field is never modified.
func (t *Task) DisplayProgress() int {
	if t.Status == StatusDone {
		return 100
	}
	if t.ProgressPercentage == nil {
		return 0
	}
	return min(max(*t.ProgressPercentage, 0), 100)
}

// PriorityValue returns the numeric priority, treating a missing one as 0.
func (t *Task) PriorityValue() int {
	if t.Priority == nil {
		return 0
	}
	return *t.Priority
}

// Project groups tasks. It is read-only from the sync engine's perspective.
type Project struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   *Date  `json:"created_at,omitempty"`
}

// CompletionResult is the body returned by the task completion endpoint. The
// backend may auto-assign the next task to the caller.
type CompletionResult struct {
	Message  string `json:"message,omitempty"`
	Task     *Task  `json:"task,omitempty"`
	NextTask *Task  `json:"next_task,omitempty"`
}

// RiskTask is a task entry in a project risk summary.
type RiskTask struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	DueDate  *Date  `json:"due_date"`
	Progress int    `json:"progress"`
}

// RiskSummary aggregates the risk levels of a project's active tasks.
type RiskSummary struct {
	TotalActiveTasks int        `json:"total_active_tasks"`
	HighRiskCount    int        `json:"high_risk_count"`
	MediumRiskCount  int        `json:"medium_risk_count"`
	LowRiskCount     int        `json:"low_risk_count"`
	HighRiskTasks    []RiskTask `json:"high_risk_tasks"`
}
