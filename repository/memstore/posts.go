package memstore

import (
	"context"
	"sort"
	"time"

	"networked/models"
	"networked/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type posts struct{ *db }

func (s *posts) Create(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.EnsureLists()
	s.posts[p.ID] = clone(p)
	return nil
}

func (s *posts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p), nil
}

func (s *posts) collect(match func(*models.Post) bool, oldest bool, n int64) []models.Post {
	var out []*models.Post
	for _, p := range s.posts {
		if !p.IsDeleted && match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldest {
			return before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
		}
		return before(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return cloneAll(limit(out, n))
}

func (s *posts) Feed(_ context.Context, q repository.FeedQuery) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p *models.Post) bool {
		switch {
		case p.Author == q.Viewer:
			return true
		case models.ContainsID(q.Connections, p.Author):
			return p.Visibility == models.VisibilityPublic || p.Visibility == models.VisibilityConnections
		case models.ContainsID(q.Following, p.Author):
			return p.Visibility == models.VisibilityPublic
		}
		return false
	}, false, q.Limit), nil
}

func (s *posts) List(_ context.Context, f repository.PostFilter) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p *models.Post) bool {
		return f.Search == "" || containsFold(p.Content, f.Search)
	}, f.Oldest, f.Limit), nil
}

func (s *posts) CountLive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.posts {
		if !p.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (s *posts) AddReaction(_ context.Context, postID primitive.ObjectID, r models.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.IsDeleted || p.ReactionBy(r.User) != nil {
		return false, nil
	}
	p.Reactions = append(p.Reactions, r)
	return true, nil
}

func (s *posts) RemoveReaction(_ context.Context, postID, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return false, nil
	}
	var removed bool
	p.Reactions, removed = pullByID(p.Reactions, userID, func(r models.Reaction) primitive.ObjectID { return r.User })
	return removed, nil
}

func (s *posts) SetReactionKind(_ context.Context, postID, userID primitive.ObjectID, kind models.ReactionKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return false, nil
	}
	r := p.ReactionBy(userID)
	if r == nil || r.Type == kind {
		return false, nil
	}
	r.Type = kind
	return true, nil
}

func (s *posts) AddComment(_ context.Context, postID primitive.ObjectID, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.IsDeleted {
		return repository.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	p.UpdatedAt = time.Now()
	return nil
}

func (s *posts) SoftDelete(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.IsDeleted {
		return false, nil
	}
	p.IsDeleted = true
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *posts) SoftDeleteComment(_ context.Context, postID, commentID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return false, nil
	}
	c := p.Comment(commentID)
	if c == nil || c.IsDeleted {
		return false, nil
	}
	c.IsDeleted = true
	return true, nil
}

func (s *posts) SoftDeleteByAuthor(_ context.Context, author primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.posts {
		if p.Author == author && !p.IsDeleted {
			p.IsDeleted = true
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}
