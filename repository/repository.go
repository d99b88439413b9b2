// Package repository is the document-store boundary. Every operation is a
// single-document write or a read; multi-document effects are composed by the
// services package.
package repository

import (
	"context"
	"time"

	"networked/models"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("repository: document not found")
	ErrDuplicate = errors.New("repository: duplicate key")
)

// RelationSet names one of the four user relationship arrays.
type RelationSet string

const (
	SetConnections RelationSet = "connections"
	SetPending     RelationSet = "pendingConnections"
	SetFollowers   RelationSet = "followers"
	SetFollowing   RelationSet = "following"
)

// ProfileList names one of the embedded profile lists.
type ProfileList string

const (
	ListSkills      ProfileList = "skills"
	ListExperiences ProfileList = "experiences"
	ListEducation   ProfileList = "education"
	ListProjects    ProfileList = "projects"
)

type UserFilter struct {
	Search    string
	Role      models.Role
	Banned    *bool
	ExcludeID *primitive.ObjectID
	Limit     int64
}

// ProfileUpdate carries the editable profile fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	FirstName          *string
	LastName           *string
	Headline           *string
	Bio                *string
	Phone              *string
	Address            *string
	City               *string
	Country            *string
	Website            *string
	LinkedIn           *string
	GitHub             *string
	CompanyName        *string
	CompanyDescription *string
	CompanySize        *string
	Industry           *string
	Photo              *string
	CVVideo            *string
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	Search(ctx context.Context, f UserFilter) ([]models.User, error)
	Count(ctx context.Context, f UserFilter) (int64, error)
	Recent(ctx context.Context, limit int64) ([]models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetBan(ctx context.Context, id primitive.ObjectID, banned bool, reason string) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	PushItem(ctx context.Context, id primitive.ObjectID, list ProfileList, item interface{}) error
	PullItem(ctx context.Context, id primitive.ObjectID, list ProfileList, itemID primitive.ObjectID) (bool, error)

	// AddToSet and Pull report whether the set actually changed.
	AddToSet(ctx context.Context, id primitive.ObjectID, set RelationSet, other primitive.ObjectID) (bool, error)
	Pull(ctx context.Context, id primitive.ObjectID, set RelationSet, other primitive.ObjectID) (bool, error)
	// AddPendingRequest appends requester to target's pending set unless it is
	// already pending there or the two are already connected.
	AddPendingRequest(ctx context.Context, target, requester primitive.ObjectID) (bool, error)
	// PromotePending moves requester from user's pending set into user's
	// connections in one write. It is a no-op returning false when requester
	// is not pending.
	PromotePending(ctx context.Context, user, requester primitive.ObjectID) (bool, error)
	// PullEverywhere removes other from every user's relation sets and
	// reports how many users changed.
	PullEverywhere(ctx context.Context, other primitive.ObjectID) (int64, error)
}

type FeedQuery struct {
	Viewer      primitive.ObjectID
	Connections []primitive.ObjectID
	Following   []primitive.ObjectID
	Limit       int64
}

type PostFilter struct {
	Search string
	Oldest bool
	Limit  int64
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Feed(ctx context.Context, q FeedQuery) ([]models.Post, error)
	List(ctx context.Context, f PostFilter) ([]models.Post, error)
	CountLive(ctx context.Context) (int64, error)

	// AddReaction inserts r only if r.User has no reaction on the post yet.
	AddReaction(ctx context.Context, postID primitive.ObjectID, r models.Reaction) (bool, error)
	RemoveReaction(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	SetReactionKind(ctx context.Context, postID, userID primitive.ObjectID, kind models.ReactionKind) (bool, error)
	AddComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) error

	SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error)
	SoftDeleteComment(ctx context.Context, postID, commentID primitive.ObjectID) (bool, error)
	SoftDeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error)
}

type JobFilter struct {
	Search     string
	Type       models.JobType
	RemoteOnly bool
	Location   string
	ActiveOnly bool
	Company    *primitive.ObjectID
}

type JobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	Search(ctx context.Context, f JobFilter) ([]models.Job, error)
	CountActive(ctx context.Context) (int64, error)
	CountPendingApplications(ctx context.Context, company primitive.ObjectID) (int64, error)

	// AddApplication appends a only if the job is active and has no
	// application from a.Applicant.
	AddApplication(ctx context.Context, jobID primitive.ObjectID, a models.Application) (bool, error)
	// SetApplicationStatus changes the applicant's status only when the job
	// belongs to company and the current status equals from.
	SetApplicationStatus(ctx context.Context, jobID, company, applicant primitive.ObjectID, from, to models.ApplicationStatus) (bool, error)

	Close(ctx context.Context, id primitive.ObjectID) (bool, error)
	CloseByCompany(ctx context.Context, company primitive.ObjectID) (int64, error)
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

type ConversationRepository interface {
	// FindOrCreate returns the conversation between exactly a and b scoped to
	// job (nil for a direct conversation), creating it if needed.
	FindOrCreate(ctx context.Context, a, b primitive.ObjectID, job *primitive.ObjectID) (*models.Conversation, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Conversation, error)
	IDsForUser(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error)
	SetLastMessage(ctx context.Context, id, messageID primitive.ObjectID, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error)
	ListByConversation(ctx context.Context, conversation primitive.ObjectID) ([]models.Message, error)
	// MarkRead flags every unread message in the conversation not sent by viewer.
	MarkRead(ctx context.Context, conversation, viewer primitive.ObjectID) (int64, error)
	CountUnread(ctx context.Context, conversations []primitive.ObjectID, viewer primitive.ObjectID) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForRecipient(ctx context.Context, recipient primitive.ObjectID, limit int64) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (bool, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
}

type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, s *models.PushSubscription) error
	FindByUser(ctx context.Context, user primitive.ObjectID) (*models.PushSubscription, error)
	DeleteByUser(ctx context.Context, user primitive.ObjectID) error
}

// Store bundles the repositories a process runs with.
type Store struct {
	Users             UserRepository
	Posts             PostRepository
	Jobs              JobRepository
	Conversations     ConversationRepository
	Messages          MessageRepository
	Notifications     NotificationRepository
	PushSubscriptions PushSubscriptionRepository
}
