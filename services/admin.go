package services

import (
	"context"
	"strings"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultBanReason = "Violation of terms of service"

type Admin struct {
	store    *repository.Store
	content  *Content
	notifier *Notifier
}

func NewAdmin(store *repository.Store, content *Content, notifier *Notifier) *Admin {
	return &Admin{store: store, content: content, notifier: notifier}
}

type Stats struct {
	Users       int64 `json:"userCount"`
	Posts       int64 `json:"postCount"`
	Jobs        int64 `json:"jobCount"`
	BannedUsers int64 `json:"bannedCount"`
}

type Dashboard struct {
	Stats       Stats                `json:"stats"`
	RecentUsers []models.UserSummary `json:"recentUsers"`
	RecentPosts []PostView           `json:"recentPosts"`
}

func (s *Admin) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Stats.Users, err = s.store.Users.Count(ctx, repository.UserFilter{}); err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	banned := true
	if d.Stats.BannedUsers, err = s.store.Users.Count(ctx, repository.UserFilter{Banned: &banned}); err != nil {
		return nil, errors.Wrap(err, "count banned users")
	}
	if d.Stats.Posts, err = s.store.Posts.CountLive(ctx); err != nil {
		return nil, errors.Wrap(err, "count posts")
	}
	if d.Stats.Jobs, err = s.store.Jobs.CountActive(ctx); err != nil {
		return nil, errors.Wrap(err, "count jobs")
	}

	users, err := s.store.Users.Recent(ctx, 5)
	if err != nil {
		return nil, errors.Wrap(err, "recent users")
	}
	d.RecentUsers = make([]models.UserSummary, 0, len(users))
	for i := range users {
		d.RecentUsers = append(d.RecentUsers, users[i].Summary())
	}

	posts, err := s.store.Posts.List(ctx, repository.PostFilter{Limit: 5})
	if err != nil {
		return nil, errors.Wrap(err, "recent posts")
	}
	if d.RecentPosts, err = s.content.Views(ctx, posts, nil); err != nil {
		return nil, err
	}
	return &d, nil
}

// AdminUser is a row of the user management table.
type AdminUser struct {
	models.UserSummary
	Email     string `json:"email"`
	IsBanned  bool   `json:"isBanned"`
	BanReason string `json:"banReason,omitempty"`
}

// Users lists accounts, newest first. status is "banned", "active" or empty.
func (s *Admin) Users(ctx context.Context, search string, role models.Role, status string) ([]AdminUser, error) {
	f := repository.UserFilter{Search: strings.TrimSpace(search), Role: role}
	switch status {
	case "banned":
		b := true
		f.Banned = &b
	case "active":
		b := false
		f.Banned = &b
	}
	users, err := s.store.Users.Search(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	out := make([]AdminUser, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, AdminUser{UserSummary: u.Summary(), Email: u.Email, IsBanned: u.IsBanned, BanReason: u.BanReason})
	}
	return out, nil
}

func (s *Admin) loadTarget(ctx context.Context, id primitive.ObjectID, action string) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "User not found", "load user")
	}
	if user.Role == models.RoleAdmin {
		return nil, Forbidden("Cannot " + action + " an admin")
	}
	return user, nil
}

// Ban blocks the account and tells its owner why.
func (s *Admin) Ban(ctx context.Context, admin *models.User, id primitive.ObjectID, reason string) error {
	user, err := s.loadTarget(ctx, id, "ban")
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultBanReason
	}
	if err := s.store.Users.SetBan(ctx, user.ID, true, reason); err != nil {
		return orNotFound(err, "User not found", "ban user")
	}
	zap.S().Infof("[Admin] %s banned %s: %s", admin.ID.Hex(), user.ID.Hex(), reason)

	_, err = s.notifier.Notify(ctx, user.ID, nil, models.NotifyAdminAction, nil,
		"Your account has been banned. Reason: "+reason)
	return err
}

func (s *Admin) Unban(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.Users.SetBan(ctx, id, false, ""); err != nil {
		return orNotFound(err, "User not found", "unban user")
	}
	return nil
}

// DeleteUser removes the account. Their posts are soft-deleted, their jobs
// closed and their id pulled from other users' relation sets first, so a failure part way leaves the account in place and the
// call can be repeated.
func (s *Admin) DeleteUser(ctx context.Context, admin *models.User, id primitive.ObjectID) error {
	user, err := s.loadTarget(ctx, id, "delete")
	if err != nil {
		return err
	}
	posts, err := s.store.Posts.SoftDeleteByAuthor(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "delete user posts")
	}
	jobs, err := s.store.Jobs.CloseByCompany(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "close user jobs")
	}
	edges, err := s.store.Users.PullEverywhere(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "remove user relations")
	}
	if err := s.store.Users.Delete(ctx, user.ID); err != nil {
		return orNotFound(err, "User not found", "delete user")
	}
	zap.S().Infof("[Admin] %s deleted %s (%d posts, %d jobs, %d related users)",
		admin.ID.Hex(), user.ID.Hex(), posts, jobs, edges)
	return nil
}

// Posts lists live posts. sort is "oldest" or newest by default.
func (s *Admin) Posts(ctx context.Context, search, sort string) ([]PostView, error) {
	posts, err := s.store.Posts.List(ctx, repository.PostFilter{
		Search: strings.TrimSpace(search),
		Oldest: sort == "oldest",
	})
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return s.content.Views(ctx, posts, nil)
}

func (s *Admin) DeletePost(ctx context.Context, admin *models.User, postID primitive.ObjectID) error {
	return s.content.DeletePost(ctx, admin, postID)
}

func (s *Admin) DeleteComment(ctx context.Context, admin *models.User, postID, commentID primitive.ObjectID) error {
	return s.content.DeleteComment(ctx, admin, postID, commentID)
}
