package services

import (
	"context"
	"strings"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const feedSize = 20

type Content struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	notifier *Notifier
}

func NewContent(posts repository.PostRepository, users repository.UserRepository, notifier *Notifier) *Content {
	return &Content{posts: posts, users: users, notifier: notifier}
}

// Media is an already stored upload attached to a post or comment.
type Media struct {
	URL  string
	Kind models.MediaKind
}

type PostView struct {
	ID            primitive.ObjectID          `json:"id"`
	Author        models.UserSummary          `json:"author"`
	Content       string                      `json:"content"`
	Media         string                      `json:"media,omitempty"`
	MediaType     models.MediaKind            `json:"mediaType,omitempty"`
	Visibility    models.Visibility           `json:"visibility"`
	ReactionCount int                         `json:"reactionCount"`
	Reactions     map[models.ReactionKind]int `json:"reactions"`
	MyReaction    models.ReactionKind         `json:"myReaction,omitempty"`
	Comments      []CommentView               `json:"comments"`
	CreatedAt     time.Time                   `json:"createdAt"`
}

type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	User      models.UserSummary `json:"user"`
	Content   string             `json:"content"`
	Media     string             `json:"media,omitempty"`
	MediaType models.MediaKind   `json:"mediaType,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (s *Content) CreatePost(ctx context.Context, author *models.User, content string, visibility models.Visibility, media *Media) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, FieldErrors(map[string]string{"content": "Post content is required"})
	}
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, FieldErrors(map[string]string{"visibility": "Visibility must be public, connections or private"})
	}

	now := time.Now()
	post := &models.Post{
		Author:     author.ID,
		Content:    content,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if media != nil {
		post.Media = media.URL
		post.MediaType = media.Kind
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, errors.Wrap(err, "create post")
	}
	return post, nil
}

type ReactResult struct {
	ReactionCount int                 `json:"reactionCount"`
	Reacted       bool                `json:"reacted"`
	Kind          models.ReactionKind `json:"type,omitempty"`
}

func (s *Content) loadLivePost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Post not found", "load post")
	}
	if post.IsDeleted {
		return nil, NotFound("Post not found")
	}
	return post, nil
}

// React toggles the user's reaction: a first reaction is added and notified,
// the same kind again removes it, and a different kind replaces it in place
// without a second notification.
func (s *Content) React(ctx context.Context, user *models.User, postID primitive.ObjectID, kind models.ReactionKind) (*ReactResult, error) {
	if kind == "" {
		kind = models.ReactionLike
	}
	if !kind.Valid() {
		return nil, Validation("Unknown reaction type")
	}

	// Each pass is one conditional write; a concurrent change by the same
	// user makes it miss and the decision is taken again on fresh state.
	for attempt := 0; attempt < 3; attempt++ {
		post, err := s.loadLivePost(ctx, postID)
		if err != nil {
			return nil, err
		}

		existing := post.ReactionBy(user.ID)
		switch {
		case existing == nil:
			added, err := s.posts.AddReaction(ctx, postID, models.Reaction{
				ID:        primitive.NewObjectID(),
				User:      user.ID,
				Type:      kind,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return nil, errors.Wrap(err, "add reaction")
			}
			if !added {
				continue
			}
			if post.Author != user.ID {
				if _, err := s.notifier.Notify(ctx, post.Author, &user.ID, models.NotifyLike,
					models.PostRef(postID), user.DisplayName()+" reacted to your post"); err != nil {
					return nil, err
				}
			}
			return &ReactResult{ReactionCount: len(post.Reactions) + 1, Reacted: true, Kind: kind}, nil

		case existing.Type == kind:
			removed, err := s.posts.RemoveReaction(ctx, postID, user.ID)
			if err != nil {
				return nil, errors.Wrap(err, "remove reaction")
			}
			if !removed {
				continue
			}
			return &ReactResult{ReactionCount: len(post.Reactions) - 1, Reacted: false}, nil

		default:
			changed, err := s.posts.SetReactionKind(ctx, postID, user.ID, kind)
			if err != nil {
				return nil, errors.Wrap(err, "change reaction")
			}
			if !changed {
				continue
			}
			return &ReactResult{ReactionCount: len(post.Reactions), Reacted: true, Kind: kind}, nil
		}
	}
	return nil, Conflict("Reaction changed concurrently, please retry")
}

func (s *Content) Comment(ctx context.Context, user *models.User, postID primitive.ObjectID, content string, media *Media) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, FieldErrors(map[string]string{"content": "Comment cannot be empty"})
	}
	post, err := s.loadLivePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	c := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      user.ID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if media != nil {
		c.Media = media.URL
		c.MediaType = media.Kind
	}
	if err := s.posts.AddComment(ctx, postID, c); err != nil {
		return nil, orNotFound(err, "Post not found", "add comment")
	}

	if post.Author != user.ID {
		if _, err := s.notifier.Notify(ctx, post.Author, &user.ID, models.NotifyComment,
			models.PostRef(postID), user.DisplayName()+" commented on your post"); err != nil {
			return nil, err
		}
	}
	return &CommentView{
		ID:        c.ID,
		User:      user.Summary(),
		Content:   c.Content,
		Media:     c.Media,
		MediaType: c.MediaType,
		CreatedAt: c.CreatedAt,
	}, nil
}

// DeletePost soft-deletes; the author or an admin may do it.
func (s *Content) DeletePost(ctx context.Context, actor *models.User, postID primitive.ObjectID) error {
	post, err := s.loadLivePost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author != actor.ID && actor.Role != models.RoleAdmin {
		return Forbidden("Not authorized")
	}
	if _, err := s.posts.SoftDelete(ctx, postID); err != nil {
		return errors.Wrap(err, "delete post")
	}
	return nil
}

// DeleteComment soft-deletes; the comment author, the post author or an admin
// may do it.
func (s *Content) DeleteComment(ctx context.Context, actor *models.User, postID, commentID primitive.ObjectID) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return orNotFound(err, "Post not found", "load post")
	}
	c := post.Comment(commentID)
	if c == nil || c.IsDeleted {
		return NotFound("Comment not found")
	}
	if c.User != actor.ID && post.Author != actor.ID && actor.Role != models.RoleAdmin {
		return Forbidden("Not authorized")
	}
	if _, err := s.posts.SoftDeleteComment(ctx, postID, commentID); err != nil {
		return errors.Wrap(err, "delete comment")
	}
	return nil
}

// Feed returns the newest posts by the viewer, their connections (public and
// connections-only posts) and the people they follow (public posts).
func (s *Content) Feed(ctx context.Context, viewer *models.User) ([]PostView, error) {
	posts, err := s.posts.Feed(ctx, repository.FeedQuery{
		Viewer:      viewer.ID,
		Connections: viewer.Connections,
		Following:   viewer.Following,
		Limit:       feedSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load feed")
	}
	return s.Views(ctx, posts, &viewer.ID)
}

// Views resolves authors and commenters for display. viewer may be nil.
func (s *Content) Views(ctx context.Context, posts []models.Post, viewer *primitive.ObjectID) ([]PostView, error) {
	var ids []primitive.ObjectID
	for _, p := range posts {
		ids = append(ids, p.Author)
		for _, c := range p.Comments {
			ids = append(ids, c.User)
		}
	}
	byID, err := userIndex(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		view := PostView{
			ID:            p.ID,
			Author:        summaryOf(byID, p.Author),
			Content:       p.Content,
			Media:         p.Media,
			MediaType:     p.MediaType,
			Visibility:    p.Visibility,
			ReactionCount: len(p.Reactions),
			Reactions:     map[models.ReactionKind]int{},
			Comments:      []CommentView{},
			CreatedAt:     p.CreatedAt,
		}
		for _, r := range p.Reactions {
			view.Reactions[r.Type]++
			if viewer != nil && r.User == *viewer {
				view.MyReaction = r.Type
			}
		}
		for _, c := range p.VisibleComments() {
			view.Comments = append(view.Comments, CommentView{
				ID:        c.ID,
				User:      summaryOf(byID, c.User),
				Content:   c.Content,
				Media:     c.Media,
				MediaType: c.MediaType,
				CreatedAt: c.CreatedAt,
			})
		}
		out = append(out, view)
	}
	return out, nil
}
