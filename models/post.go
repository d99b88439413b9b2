package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityConnections Visibility = "connections"
	VisibilityPrivate     Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityConnections, VisibilityPrivate:
		return true
	}
	return false
}

type ReactionKind string

const (
	ReactionLike       ReactionKind = "like"
	ReactionLove       ReactionKind = "love"
	ReactionCelebrate  ReactionKind = "celebrate"
	ReactionSupport    ReactionKind = "support"
	ReactionInsightful ReactionKind = "insightful"
)

func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionLike, ReactionLove, ReactionCelebrate, ReactionSupport, ReactionInsightful:
		return true
	}
	return false
}

type Post struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Author     primitive.ObjectID `bson:"author" json:"author"`
	Content    string             `bson:"content" json:"content"`
	Media      string             `bson:"media,omitempty" json:"media,omitempty"`
	MediaType  MediaKind          `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	Visibility Visibility         `bson:"visibility" json:"visibility"`
	Reactions  []Reaction         `bson:"reactions" json:"reactions"`
	Comments   []Comment          `bson:"comments" json:"comments"`
	IsDeleted  bool               `bson:"isDeleted" json:"-"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ReactionBy returns the user's reaction, if any.
func (p *Post) ReactionBy(user primitive.ObjectID) *Reaction {
	for i := range p.Reactions {
		if p.Reactions[i].User == user {
			return &p.Reactions[i]
		}
	}
	return nil
}

func (p *Post) Comment(id primitive.ObjectID) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}

// VisibleComments drops soft-deleted comments.
func (p *Post) VisibleComments() []Comment {
	out := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if !c.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

type Reaction struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Type      ReactionKind       `bson:"type" json:"type"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Content   string             `bson:"content" json:"content"`
	Media     string             `bson:"media,omitempty" json:"media,omitempty"`
	MediaType MediaKind          `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	IsDeleted bool               `bson:"isDeleted" json:"-"`
}

func (p *Post) EnsureLists() {
	if p.Reactions == nil {
		p.Reactions = []Reaction{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}
