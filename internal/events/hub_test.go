package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, h *Hub) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn, ctx
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHub_HelloSnapshotAndBroadcast(t *testing.T) {
	h := NewHub("*", false, nil)
	h.SetSnapshot(func() []Event {
		return []Event{{Type: TypeBoard, Data: map[string]int{"total": 2}}}
	})

	conn, ctx := connect(t, h)

	assert.Equal(t, "hello", readEvent(t, ctx, conn)["type"])
	board := readEvent(t, ctx, conn)
	assert.Equal(t, "board", board["type"])

	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.Toast("error", "Failed to complete task. Please try again.")
	ev := readEvent(t, ctx, conn)
	assert.Equal(t, "toast", ev["type"])
	data := ev["data"].(map[string]any)
	assert.Equal(t, "error", data["kind"])
}

func TestHub_BroadcastDuringConnectIsQueuedAfterSnapshot(t *testing.T) {
	h := NewHub("*", false, nil)
	h.SetSnapshot(func() []Event {
		go h.Toast("info", "queued while connecting")
		return []Event{{Type: TypeBoard, Data: map[string]int{"total": 2}}}
	})

	conn, ctx := connect(t, h)

	assert.Equal(t, "hello", readEvent(t, ctx, conn)["type"])
	assert.Equal(t, "board", readEvent(t, ctx, conn)["type"])
	ev := readEvent(t, ctx, conn)
	assert.Equal(t, "toast", ev["type"])
	assert.Equal(t, "queued while connecting", ev["data"].(map[string]any)["message"])
}

func TestHub_PingPong(t *testing.T) {
	h := NewHub("*", false, nil)
	conn, ctx := connect(t, h)
	readEvent(t, ctx, conn)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readEvent(t, ctx, conn)["type"])
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	h := NewHub("*", false, nil)
	conn, ctx := connect(t, h)
	readEvent(t, ctx, conn)
	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	h := NewHub("https://board.example.com", false, nil)
	req := httptest.NewRequest("GET", "/ws/events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	assert.Equal(t, 403, rec.Code)
}
