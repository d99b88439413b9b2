package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Key          string               `bson:"key" json:"-"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Job          *primitive.ObjectID  `bson:"job" json:"job,omitempty"`
	LastMessage  *primitive.ObjectID  `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// ConversationKey identifies the conversation between a and b scoped to job,
// independent of participant order.
func ConversationKey(a, b primitive.ObjectID, job *primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	key := x + ":" + y
	if job != nil {
		key += ":" + job.Hex()
	}
	return key
}

func (c *Conversation) HasParticipant(id primitive.ObjectID) bool {
	return ContainsID(c.Participants, id)
}

// Other returns the participant that is not id.
func (c *Conversation) Other(id primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != id {
			return p
		}
	}
	return primitive.NilObjectID
}
