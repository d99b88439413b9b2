package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Conversation primitive.ObjectID `bson:"conversation" json:"conversation"`
	Sender       primitive.ObjectID `bson:"sender" json:"sender"`
	Content      string             `bson:"content" json:"content"`
	Read         bool               `bson:"read" json:"read"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
