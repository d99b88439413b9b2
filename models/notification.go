package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyLike               NotificationType = "like"
	NotifyComment            NotificationType = "comment"
	NotifyFollow             NotificationType = "follow"
	NotifyConnectionRequest  NotificationType = "connection_request"
	NotifyConnectionAccepted NotificationType = "connection_accepted"
	NotifyJobApplication     NotificationType = "job_application"
	NotifyMessage            NotificationType = "message"
	NotifyAdminAction        NotificationType = "admin_action"
)

type RefKind string

const (
	RefPost    RefKind = "post"
	RefJob     RefKind = "job"
	RefUser    RefKind = "user"
	RefMessage RefKind = "message"
)

// Reference points a notification at the entity that triggered it.
type Reference struct {
	Kind RefKind            `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

func PostRef(id primitive.ObjectID) *Reference    { return &Reference{Kind: RefPost, ID: id} }
func JobRef(id primitive.ObjectID) *Reference     { return &Reference{Kind: RefJob, ID: id} }
func UserRef(id primitive.ObjectID) *Reference    { return &Reference{Kind: RefUser, ID: id} }
func MessageRef(id primitive.ObjectID) *Reference { return &Reference{Kind: RefMessage, ID: id} }

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type      NotificationType    `bson:"type" json:"type"`
	Reference *Reference          `bson:"reference,omitempty" json:"reference,omitempty"`
	Message   string              `bson:"message" json:"message"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
