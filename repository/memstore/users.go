package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"networked/models"
	"networked/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type users struct{ *db }

func (s *users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.EnsureLists()
	s.users[u.ID] = clone(u)
	return nil
}

func (s *users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (s *users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *users) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []*models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			found = append(found, u)
		}
	}
	return cloneAll(found), nil
}

func matchUser(u *models.User, f repository.UserFilter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Banned != nil && u.IsBanned != *f.Banned {
		return false
	}
	if f.ExcludeID != nil && u.ID == *f.ExcludeID {
		return false
	}
	if f.Search == "" {
		return true
	}
	fields := []string{u.FirstName, u.LastName, u.Email, u.Headline, u.CompanyName}
	for _, sk := range u.Skills {
		fields = append(fields, sk.Title, sk.Technology)
	}
	for _, v := range fields {
		if containsFold(v, f.Search) {
			return true
		}
	}
	return false
}

func (s *users) filter(f repository.UserFilter) []*models.User {
	var out []*models.User
	for _, u := range s.users {
		if matchUser(u, f) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return out
}

func (s *users) Search(_ context.Context, f repository.UserFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(limit(s.filter(f), f.Limit)), nil
}

func (s *users) Count(_ context.Context, f repository.UserFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filter(f))), nil
}

func (s *users) Recent(ctx context.Context, n int64) ([]models.User, error) {
	return s.Search(ctx, repository.UserFilter{Limit: n})
}

func (s *users) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *users) UpdateProfile(_ context.Context, id primitive.ObjectID, upd repository.ProfileUpdate) error {
	return s.mutate(id, func(u *models.User) {
		set := func(dst *string, v *string) {
			if v != nil {
				*dst = *v
			}
		}
		set(&u.FirstName, upd.FirstName)
		set(&u.LastName, upd.LastName)
		set(&u.Headline, upd.Headline)
		set(&u.Bio, upd.Bio)
		set(&u.Phone, upd.Phone)
		set(&u.Address, upd.Address)
		set(&u.City, upd.City)
		set(&u.Country, upd.Country)
		set(&u.Website, upd.Website)
		set(&u.LinkedIn, upd.LinkedIn)
		set(&u.GitHub, upd.GitHub)
		set(&u.CompanyName, upd.CompanyName)
		set(&u.CompanyDescription, upd.CompanyDescription)
		set(&u.CompanySize, upd.CompanySize)
		set(&u.Industry, upd.Industry)
		set(&u.Photo, upd.Photo)
		set(&u.CVVideo, upd.CVVideo)
	})
}

func (s *users) LinkGoogle(_ context.Context, id primitive.ObjectID, googleID string) error {
	return s.mutate(id, func(u *models.User) { u.GoogleID = &googleID })
}

func (s *users) SetLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.mutate(id, func(u *models.User) { u.LastLogin = &at })
}

func (s *users) SetBan(_ context.Context, id primitive.ObjectID, banned bool, reason string) error {
	return s.mutate(id, func(u *models.User) {
		u.IsBanned = banned
		if banned {
			u.BanReason = reason
		} else {
			u.BanReason = ""
		}
	})
}

func (s *users) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *users) PushItem(_ context.Context, id primitive.ObjectID, list repository.ProfileList, item interface{}) error {
	return s.mutate(id, func(u *models.User) {
		switch v := item.(type) {
		case models.Skill:
			u.Skills = append(u.Skills, v)
		case models.Experience:
			u.Experiences = append(u.Experiences, v)
		case models.Education:
			u.Education = append(u.Education, v)
		case models.Project:
			u.Projects = append(u.Projects, v)
		}
	})
}

func (s *users) PullItem(_ context.Context, id primitive.ObjectID, list repository.ProfileList, itemID primitive.ObjectID) (bool, error) {
	removed := false
	err := s.mutate(id, func(u *models.User) {
		switch list {
		case repository.ListSkills:
			u.Skills, removed = pullByID(u.Skills, itemID, func(v models.Skill) primitive.ObjectID { return v.ID })
		case repository.ListExperiences:
			u.Experiences, removed = pullByID(u.Experiences, itemID, func(v models.Experience) primitive.ObjectID { return v.ID })
		case repository.ListEducation:
			u.Education, removed = pullByID(u.Education, itemID, func(v models.Education) primitive.ObjectID { return v.ID })
		case repository.ListProjects:
			u.Projects, removed = pullByID(u.Projects, itemID, func(v models.Project) primitive.ObjectID { return v.ID })
		}
	})
	return removed, err
}

func pullByID[T any](items []T, id primitive.ObjectID, key func(T) primitive.ObjectID) ([]T, bool) {
	out := make([]T, 0, len(items))
	removed := false
	for _, v := range items {
		if key(v) == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

func relation(u *models.User, set repository.RelationSet) *[]primitive.ObjectID {
	switch set {
	case repository.SetConnections:
		return &u.Connections
	case repository.SetPending:
		return &u.PendingConnections
	case repository.SetFollowers:
		return &u.Followers
	default:
		return &u.Following
	}
}

func (s *users) AddToSet(_ context.Context, id primitive.ObjectID, set repository.RelationSet, other primitive.ObjectID) (bool, error) {
	changed := false
	err := s.mutate(id, func(u *models.User) {
		if id == other {
			return
		}
		ids := relation(u, set)
		if !models.ContainsID(*ids, other) {
			*ids = append(*ids, other)
			changed = true
		}
	})
	return changed, err
}

func (s *users) Pull(_ context.Context, id primitive.ObjectID, set repository.RelationSet, other primitive.ObjectID) (bool, error) {
	changed := false
	err := s.mutate(id, func(u *models.User) {
		ids := relation(u, set)
		*ids, changed = removeID(*ids, other)
	})
	return changed, err
}

func (s *users) AddPendingRequest(_ context.Context, target, requester primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[target]
	if !ok || u.HasPendingFrom(requester) || u.IsConnectedTo(requester) {
		return false, nil
	}
	u.PendingConnections = append(u.PendingConnections, requester)
	return true, nil
}

func (s *users) PromotePending(_ context.Context, user, requester primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user]
	if !ok || !u.HasPendingFrom(requester) {
		return false, nil
	}
	u.PendingConnections, _ = removeID(u.PendingConnections, requester)
	if !u.IsConnectedTo(requester) {
		u.Connections = append(u.Connections, requester)
	}
	return true, nil
}

func (s *users) PullEverywhere(_ context.Context, other primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, u := range s.users {
		touched := false
		for _, set := range []repository.RelationSet{
			repository.SetConnections, repository.SetPending,
			repository.SetFollowers, repository.SetFollowing,
		} {
			ids := relation(u, set)
			var removed bool
			if *ids, removed = removeID(*ids, other); removed {
				touched = true
			}
		}
		if touched {
			changed++
		}
	}
	return changed, nil
}
