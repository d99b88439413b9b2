// Package memstore keeps every collection in process memory behind one mutex.
// It backs `serve --memory` and the package tests.
package memstore

import (
	"strings"
	"sync"
	"time"

	"networked/models"
	"networked/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type db struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]*models.User
	posts         map[primitive.ObjectID]*models.Post
	jobs          map[primitive.ObjectID]*models.Job
	conversations map[primitive.ObjectID]*models.Conversation
	messages      map[primitive.ObjectID]*models.Message
	notifications map[primitive.ObjectID]*models.Notification
	pushSubs      map[primitive.ObjectID]*models.PushSubscription
}

// New returns an empty store.
func New() *repository.Store {
	d := &db{
		users:         map[primitive.ObjectID]*models.User{},
		posts:         map[primitive.ObjectID]*models.Post{},
		jobs:          map[primitive.ObjectID]*models.Job{},
		conversations: map[primitive.ObjectID]*models.Conversation{},
		messages:      map[primitive.ObjectID]*models.Message{},
		notifications: map[primitive.ObjectID]*models.Notification{},
		pushSubs:      map[primitive.ObjectID]*models.PushSubscription{},
	}
	return &repository.Store{
		Users:             &users{d},
		Posts:             &posts{d},
		Jobs:              &jobs{d},
		Conversations:     &conversations{d},
		Messages:          &messages{d},
		Notifications:     &notifications{d},
		PushSubscriptions: &pushSubscriptions{d},
	}
}

// clone deep-copies v through its BSON encoding so stored documents never
// alias caller memory and round-trip exactly as they would through Mongo.
func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func cloneAll[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *clone(v))
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	out := ids[:0]
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

// before orders by time, then by id so documents created in the same
// millisecond keep insertion order.
func before(at, bt time.Time, a, b primitive.ObjectID) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.Hex() < b.Hex()
}

func limit[T any](items []T, n int64) []T {
	if n > 0 && int64(len(items)) > n {
		return items[:n]
	}
	return items
}
