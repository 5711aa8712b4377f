package atlas

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

const notificationsPath = "/api/v1/notifications"

type countBody struct {
	Count int `json:"count"`
}

// ListNotifications returns the caller's notifications.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]domain.Notification, error) {
	query := url.Values{"unread_only": {strconv.FormatBool(unreadOnly)}}
	return getList[domain.Notification](ctx, c, notificationsPath, query, nil)
}

// UnreadNotificationCount returns the number of unread notifications.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	path := notificationsPath + "/unread-count"
	data, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return 0, err
	}
	var body countBody
	if err := decodeObject(path, data, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id domain.ID) error {
	_, err := c.do(ctx, http.MethodPost, notificationsPath+"/"+url.PathEscape(id.String())+"/read", nil, struct{}{}, nil)
	return err
}

// MarkAllNotificationsRead marks every notification as read and returns how
// many were updated.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	path := notificationsPath + "/mark-all-read"
	data, err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil)
	if err != nil {
		return 0, err
	}
	var body countBody
	if err := decodeObject(path, data, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, id domain.ID) error {
	_, err := c.do(ctx, http.MethodDelete, notificationsPath+"/"+url.PathEscape(id.String()), nil, nil, nil)
	return err
}
