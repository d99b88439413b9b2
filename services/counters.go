package services

import (
	"context"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
)

type Snapshot struct {
	UnreadNotifications int64 `json:"unreadNotifications"`
	UnreadMessages      int64 `json:"unreadMessages"`
	PendingConnections  int64 `json:"pendingConnections"`
	PendingApplications int64 `json:"pendingApplications"`
}

// Counters recomputes the badge counts on every call. Unread messages cost a
// lookup of the user's conversation ids plus one indexed count, and pending
// applications scan the company's jobs; both grow linearly with the user's
// data, which is accepted at this scale.
type Counters struct {
	store *repository.Store
}

func NewCounters(store *repository.Store) *Counters {
	return &Counters{store: store}
}

func (s *Counters) Snapshot(ctx context.Context, user *models.User) (*Snapshot, error) {
	snap := &Snapshot{PendingConnections: int64(len(user.PendingConnections))}

	var err error
	if snap.UnreadNotifications, err = s.store.Notifications.CountUnread(ctx, user.ID); err != nil {
		return nil, errors.Wrap(err, "count unread notifications")
	}

	convIDs, err := s.store.Conversations.IDsForUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list conversation ids")
	}
	if snap.UnreadMessages, err = s.store.Messages.CountUnread(ctx, convIDs, user.ID); err != nil {
		return nil, errors.Wrap(err, "count unread messages")
	}

	if user.Role == models.RoleCompany {
		if snap.PendingApplications, err = s.store.Jobs.CountPendingApplications(ctx, user.ID); err != nil {
			return nil, errors.Wrap(err, "count pending applications")
		}
	}
	return snap, nil
}
