package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
)

// UserLister fetches the presence snapshot.
type UserLister interface {
	ListOnlineUsers(ctx context.Context) ([]domain.OnlineUser, error)
}

// Roster caches the set of online users. It is replaced wholesale on every
// refresh; presence frames carry no payload and only signal a change.
type Roster struct {
	lister UserLister

	mu    sync.RWMutex
	users []domain.OnlineUser
}

// NewRoster creates an empty roster.
func NewRoster(lister UserLister) *Roster {
	return &Roster{lister: lister}
}

// Refresh refetches the roster. On failure the previous snapshot is kept.
func (r *Roster) Refresh(ctx context.Context) error {
	users, err := r.lister.ListOnlineUsers(ctx)
	if err != nil {
		return fmt.Errorf("refresh online users: %w", err)
	}
	if users == nil {
		users = []domain.OnlineUser{}
	}

	r.mu.Lock()
	r.users = users
	r.mu.Unlock()
	return nil
}

// Users returns a copy of the current snapshot.
func (r *Roster) Users() []domain.OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.users)
}
