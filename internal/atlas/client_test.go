package atlas

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, credential.Static("test-jwt"))
	require.NoError(t, err)
	return c, &calls
}

func TestListTasks_SendsBearerAndNoCache(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/p1/tasks", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		assert.NotEmpty(t, r.URL.Query().Get("_t"))
		_, _ = w.Write([]byte(`[{"id":"1","title":"A","status":"To Do"},{"id":"2","title":"B","status":"Done"}]`))
	})

	tasks, err := c.ListTasks(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, domain.StatusDone, tasks[1].Status)
}

func TestMissingCredential_NoRequestAttempted(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c.provider = credential.Static("")

	_, err := c.ListProjects(context.Background())
	require.ErrorIs(t, err, credential.ErrMissingCredential)
	require.Zero(t, calls.Load())

	_, err = c.CompleteTask(context.Background(), "t1")
	require.ErrorIs(t, err, credential.ErrMissingCredential)
	require.Zero(t, calls.Load())
}

func TestListEndpoint_NonArrayPayloadIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	tasks, err := c.ListTasks(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, tasks)
	require.Empty(t, tasks)
}

func TestListEndpoint_InvalidJSONFails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops`))
	})

	_, err := c.ListProjects(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestListEndpoint_SkipsUndecodableEntries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","title":"ok","status":"To Do"},{"id":true}]`))
	})

	tasks, err := c.ListTasks(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}

func TestCompleteTask_ServerRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/projects/tasks/t1/complete", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"Only the assignee can complete this task"}`))
	})

	_, err := c.CompleteTask(context.Background(), "t1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "Only the assignee can complete this task", apiErr.Detail)
}

func TestCompleteTask_WrappedAndBareBodies(t *testing.T) {
	body := `{"message":"Task completed successfully","task":{"id":"t1","title":"A","status":"Done"}}`
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	res, err := c.CompleteTask(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	require.Equal(t, domain.StatusDone, res.Task.Status)

	body = `{"id":"t1","title":"A","status":"Done"}`
	res, err = c.CompleteTask(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	require.Equal(t, domain.ID("t1"), res.Task.ID)
}

func TestTransportFailure(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", credential.Static("jwt"))
	require.NoError(t, err)

	_, err = c.ListProjects(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestValidationDetailArray(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["path","id"],"msg":"bad"}]}`))
	})

	err := c.MarkNotificationRead(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Contains(t, apiErr.Detail, "bad")
}

func TestNotifications(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/notifications":
			assert.Equal(t, "true", r.URL.Query().Get("unread_only"))
			_, _ = w.Write([]byte(`[{"id":5,"type":"task_assigned","title":"t","message":"m","read":false}]`))
		case "/api/v1/notifications/unread-count":
			_, _ = w.Write([]byte(`{"count":3}`))
		case "/api/v1/notifications/mark-all-read":
			_, _ = w.Write([]byte(`{"count":3}`))
		case "/api/v1/notifications/5":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	list, err := c.ListNotifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, domain.ID("5"), list[0].ID)

	n, err := c.UnreadNotificationCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = c.MarkAllNotificationsRead(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.NoError(t, c.DeleteNotification(ctx, "5"))
}

func TestProjectRisks_RequiresObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.ProjectRisks(context.Background(), "p1")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChatURL(t *testing.T) {
	c, err := NewClient("https://atlas.example.com/", credential.Static("x"))
	require.NoError(t, err)

	u, err := c.ChatURL("", "a b")
	require.NoError(t, err)
	require.Equal(t, "wss://atlas.example.com/api/v1/chat/ws?token=a+b", u)

	u, err = c.ChatURL("ws://localhost:9000", "t")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:9000/api/v1/chat/ws?token=t", u)
}
