// Package mcptools exposes the board, issues, notifications and presence as
// MCP tools.
package mcptools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// New creates an MCP server with every tool registered.
func New(t *Tools) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "atlas-board",
		Version: Version,
	}, nil)

	// Board tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_projects",
		Description: "List the Atlas projects visible to the signed-in user",
	}, t.ListProjects)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List a project's tasks, optionally filtered by status or text and sorted by title, dueDate or priority",
	}, t.ListTasks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_board",
		Description: "Get a project's task board grouped into To Do, In Progress and Done columns with counts",
	}, t.GetBoard)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task complete; the backend may auto-assign the next task",
	}, t.CompleteTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_project_risks",
		Description: "Get the risk summary of a project's active tasks",
	}, t.GetProjectRisks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_task",
		Description: "Update a task's status, assignee or progress",
	}, t.UpdateTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "bulk_assign_tasks",
		Description: "Assign several tasks to one user",
	}, t.BulkAssignTasks)

	// Issue tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "report_issue",
		Description: "Report a blocker, bug or question on a project",
	}, t.ReportIssue)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_issues",
		Description: "List a project's issues, optionally by status",
	}, t.ListIssues)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "assign_issue",
		Description: "Assign an issue to a team member",
	}, t.AssignIssue)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "resolve_issue",
		Description: "Resolve an issue with a resolution note",
	}, t.ResolveIssue)

	// Notification and presence tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_notifications",
		Description: "List notifications, optionally only unread ones",
	}, t.GetNotifications)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "mark_notification_read",
		Description: "Mark one notification as read",
	}, t.MarkNotificationRead)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_online_users",
		Description: "List users currently online in chat",
	}, t.GetOnlineUsers)

	return srv
}
