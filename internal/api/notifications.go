package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// ListNotifications lists notifications, optionally only unread ones.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		unreadOnly = v
	}

	items, err := h.Backend.ListNotifications(r.Context(), unreadOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"notifications": items})
}

// UnreadCount returns the cached unread count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, known := h.Unread.Count()
	if !known {
		if err := h.Unread.Refresh(r.Context()); err != nil {
			h.writeError(w, err)
			return
		}
		n, _ = h.Unread.Count()
	}
	JSON(w, http.StatusOK, map[string]int{"count": n})
}

// MarkRead marks one notification read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(chi.URLParam(r, "id"))
	if err := h.Backend.MarkNotificationRead(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.refreshUnread(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead marks every notification read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Backend.MarkAllNotificationsRead(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Unread.Set(0)
	JSON(w, http.StatusOK, map[string]int{"marked": n})
}

// DeleteNotification deletes one notification.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(chi.URLParam(r, "id"))
	if err := h.Backend.DeleteNotification(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.refreshUnread(r.Context())
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) refreshUnread(ctx context.Context) {
	if err := h.Unread.Refresh(ctx); err != nil {
		h.logger.Debug("Failed to refresh unread count", "error", err)
	}
}
