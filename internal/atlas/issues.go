package atlas

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

const issuesPath = "/api/v1/issues"

// userRef encodes a user ID the way the backend declares it: an integer when
// the ID is numeric.
func userRef(id domain.ID) any {
	if n, err := strconv.ParseInt(id.String(), 10, 64); err == nil {
		return n
	}
	return id.String()
}

// ReportIssue raises an issue against a project.
func (c *Client) ReportIssue(ctx context.Context, issue domain.NewIssue) (*domain.Issue, error) {
	if err := issue.Validate(); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, issuesPath, nil, issue, nil)
	if err != nil {
		return nil, err
	}
	var created domain.Issue
	if err := decodeObject(issuesPath, data, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListIssues returns a project's issues. An empty status lists all of them.
func (c *Client) ListIssues(ctx context.Context, projectID domain.ID, status domain.IssueStatus) ([]domain.Issue, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {string(status)}}
	}
	return getList[domain.Issue](ctx, c, issuesPath+"/project/"+url.PathEscape(projectID.String()), query, nil)
}

// AssignIssue assigns an issue to a user.
func (c *Client) AssignIssue(ctx context.Context, issueID, userID domain.ID) error {
	path := issuesPath + "/" + url.PathEscape(issueID.String()) + "/assign"
	_, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"assigned_to": userRef(userID)}, nil)
	return err
}

// ResolveIssue closes an issue with a resolution note.
func (c *Client) ResolveIssue(ctx context.Context, issueID domain.ID, resolution string) error {
	path := issuesPath + "/" + url.PathEscape(issueID.String()) + "/resolve"
	_, err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"resolution": resolution}, nil)
	return err
}
