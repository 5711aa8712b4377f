package domain

import (
	"fmt"
	"strings"
)

// IssueType classifies a reported issue.
type IssueType string

const (
	IssueBlocker  IssueType = "blocker"
	IssueBug      IssueType = "bug"
	IssueQuestion IssueType = "question"
)

// IssuePriority ranks a reported issue.
type IssuePriority string

const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

// IssueStatus is the lifecycle state of an issue.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
)

// ParseIssueStatus accepts the wire values. The second result is false for
// unknown input.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	switch st := IssueStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case IssueOpen, IssueInProgress, IssueResolved:
		return st, true
	}
	return "", false
}

// Issue is a blocker, bug or question raised against a project.
type Issue struct {
	ID               ID            `json:"id"`
	ProjectID        ID            `json:"project_id"`
	TaskID           *ID           `json:"task_id,omitempty"`
	ReporterID       ID            `json:"reporter_id,omitempty"`
	AssigneeID       *ID           `json:"assignee_id,omitempty"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	IssueType        IssueType     `json:"issue_type"`
	Priority         IssuePriority `json:"priority"`
	Status           IssueStatus   `json:"status"`
	Resolution       string        `json:"resolution,omitempty"`
	CreatedAt        *Date         `json:"created_at,omitempty"`
	ResolvedAt       *Date         `json:"resolved_at,omitempty"`
	ReporterUsername string        `json:"reporter_username,omitempty"`
	AssigneeUsername string        `json:"assignee_username,omitempty"`
}

// NewIssue is the body of an issue report.
type NewIssue struct {
	ProjectID   ID            `json:"project_id"`
	TaskID      *ID           `json:"task_id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	IssueType   IssueType     `json:"issue_type"`
	Priority    IssuePriority `json:"priority"`
}

// Validate checks the required fields and enumerations.
func (n NewIssue) Validate() error {
	switch {
	case n.ProjectID.IsZero():
		return fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	case strings.TrimSpace(n.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	switch n.IssueType {
	case IssueBlocker, IssueBug, IssueQuestion:
	default:
		return fmt.Errorf("%w: unknown issue type %q", ErrInvalidInput, n.IssueType)
	}
	switch n.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, n.Priority)
	}
	return nil
}

// TaskUpdate is a partial task edit. Nil fields are left unchanged.
type TaskUpdate struct {
	Status             *Status  `json:"status,omitempty"`
	AssigneeID         *ID      `json:"assigned_to,omitempty"`
	ProgressPercentage *int     `json:"progress_percentage,omitempty"`
	EstimateHours      *float64 `json:"estimate_hours,omitempty"`
	DueDate            *Date    `json:"due_date,omitempty"`
}

// Validate rejects an empty update and out of range progress.
func (u TaskUpdate) Validate() error {
	if u.Status == nil && u.AssigneeID == nil && u.ProgressPercentage == nil &&
		u.EstimateHours == nil && u.DueDate == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p := u.ProgressPercentage; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// BulkAssignFailure names a task the backend refused to reassign.
type BulkAssignFailure struct {
	TaskID ID     `json:"task_id"`
	Reason string `json:"reason"`
}

// BulkAssignResult summarizes a bulk assignment.
type BulkAssignResult struct {
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	FailedTasks  []BulkAssignFailure `json:"failed_tasks"`
}
