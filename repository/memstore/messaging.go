package memstore

import (
	"context"
	"sort"
	"time"

	"networked/models"
	"networked/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type conversations struct{ *db }

func (s *conversations) FindOrCreate(_ context.Context, a, b primitive.ObjectID, job *primitive.ObjectID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.ConversationKey(a, b, job)
	for _, c := range s.conversations {
		if c.Key == key {
			return clone(c), nil
		}
	}
	now := time.Now()
	c := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Key:          key,
		Participants: []primitive.ObjectID{a, b},
		Job:          job,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[c.ID] = clone(c)
	return clone(c), nil
}

func (s *conversations) FindByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

func (s *conversations) forUser(user primitive.ObjectID) []*models.Conversation {
	var out []*models.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(user) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[j].UpdatedAt, out[i].UpdatedAt, out[j].ID, out[i].ID)
	})
	return out
}

func (s *conversations) ListForUser(_ context.Context, user primitive.ObjectID) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.forUser(user)), nil
}

func (s *conversations) IDsForUser(_ context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convs := s.forUser(user)
	ids := make([]primitive.ObjectID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *conversations) SetLastMessage(_ context.Context, id, messageID primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil
	}
	c.LastMessage = &messageID
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
	return nil
}

type messages struct{ *db }

func (s *messages) Create(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.messages[m.ID] = clone(m)
	return nil
}

func (s *messages) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out = append(out, m)
		}
	}
	return cloneAll(out), nil
}

func (s *messages) ListByConversation(_ context.Context, conversation primitive.ObjectID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.Conversation == conversation {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return cloneAll(out), nil
}

func (s *messages) MarkRead(_ context.Context, conversation, viewer primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.Conversation == conversation && m.Sender != viewer && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (s *messages) CountUnread(_ context.Context, conversations []primitive.ObjectID, viewer primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if !m.Read && m.Sender != viewer && models.ContainsID(conversations, m.Conversation) {
			n++
		}
	}
	return n, nil
}

type notifications struct{ *db }

func (s *notifications) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	s.notifications[n.ID] = clone(n)
	return nil
}

func (s *notifications) ListForRecipient(_ context.Context, recipient primitive.ObjectID, n int64) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, v := range s.notifications {
		if v.Recipient == recipient {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return cloneAll(limit(out, n)), nil
}

func (s *notifications) MarkAllRead(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.notifications {
		if v.Recipient == recipient && !v.Read {
			v.Read = true
			n++
		}
	}
	return n, nil
}

func (s *notifications) MarkRead(_ context.Context, id, recipient primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.notifications[id]
	if !ok || v.Recipient != recipient {
		return false, nil
	}
	v.Read = true
	return true, nil
}

func (s *notifications) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, v := range s.notifications {
		if v.Recipient == recipient && !v.Read {
			n++
		}
	}
	return n, nil
}

type pushSubscriptions struct{ *db }

func (s *pushSubscriptions) Upsert(_ context.Context, sub *models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pushSubs[sub.UserID]; ok {
		sub.ID = existing.ID
	} else if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	s.pushSubs[sub.UserID] = clone(sub)
	return nil
}

func (s *pushSubscriptions) FindByUser(_ context.Context, user primitive.ObjectID) (*models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.pushSubs[user]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(sub), nil
}

func (s *pushSubscriptions) DeleteByUser(_ context.Context, user primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pushSubs, user)
	return nil
}
