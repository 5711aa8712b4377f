package atlas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// ListOnlineUsers returns the current presence snapshot.
func (c *Client) ListOnlineUsers(ctx context.Context) ([]domain.OnlineUser, error) {
	return getList[domain.OnlineUser](ctx, c, "/api/v1/chat/online-users", nil, nil)
}

// ListChannels returns the chat channels visible to the caller.
func (c *Client) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return getList[domain.Channel](ctx, c, "/api/v1/chat/channels", nil, nil)
}

// ListConversations returns the caller's direct-message peers.
func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	return getList[domain.Conversation](ctx, c, "/api/v1/chat/conversations", nil, nil)
}

// ListChannelMessages returns the history of a channel.
func (c *Client) ListChannelMessages(ctx context.Context, channelID domain.ID) ([]domain.Message, error) {
	return getList[domain.Message](ctx, c, "/api/v1/chat/channels/"+url.PathEscape(channelID.String())+"/messages", nil, nil)
}

// PostChannelMessage sends a message to a channel over REST.
func (c *Client) PostChannelMessage(ctx context.Context, channelID domain.ID, content string) (*domain.Message, error) {
	path := "/api/v1/chat/channels/" + url.PathEscape(channelID.String()) + "/messages"
	data, err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"content": content}, nil)
	if err != nil {
		return nil, err
	}
	var msg domain.Message
	if err := decodeObject(path, data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListDirectMessages returns the direct-message history with a user.
func (c *Client) ListDirectMessages(ctx context.Context, userID domain.ID) ([]domain.Message, error) {
	return getList[domain.Message](ctx, c, "/api/v1/chat/direct-messages/"+url.PathEscape(userID.String()), nil, nil)
}

// SearchMessages performs a full-text message search.
func (c *Client) SearchMessages(ctx context.Context, query string) ([]domain.Message, error) {
	return getList[domain.Message](ctx, c, "/api/v1/chat/search", url.Values{"query": {query}}, nil)
}

// ChatURL builds the chat WebSocket URL for token. wsBase overrides the
// scheme/host derived from the API URL when non-empty.
func (c *Client) ChatURL(wsBase, token string) (string, error) {
	var u url.URL
	if wsBase != "" {
		parsed, err := url.Parse(strings.TrimRight(wsBase, "/"))
		if err != nil {
			return "", fmt.Errorf("parse websocket url: %w", err)
		}
		u = *parsed
	} else {
		u = *c.baseURL
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/chat/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}
