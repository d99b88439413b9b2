package memstore

import (
	"context"
	"testing"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUsersAreCopiedInAndOut(t *testing.T) {
	store := New()
	ctx := context.Background()
	u := &models.User{Email: "a@example.com", FirstName: "A", CreatedAt: time.Now()}
	require.NoError(t, store.Users.Create(ctx, u))
	require.False(t, u.ID.IsZero())

	u.FirstName = "changed"
	got, err := store.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.FirstName)
	assert.NotNil(t, got.Connections)

	got.FirstName = "again"
	again, err := store.Users.FindByEmail(ctx, " A@example.com")
	require.NoError(t, err)
	assert.Equal(t, "A", again.FirstName)

	err = store.Users.Create(ctx, &models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = store.Users.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPendingGuards(t *testing.T) {
	store := New()
	ctx := context.Background()
	a := &models.User{Email: "a@example.com"}
	b := &models.User{Email: "b@example.com"}
	require.NoError(t, store.Users.Create(ctx, a))
	require.NoError(t, store.Users.Create(ctx, b))

	added, err := store.Users.AddPendingRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = store.Users.AddPendingRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, added)

	promoted, err := store.Users.PromotePending(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, promoted)
	promoted, err = store.Users.PromotePending(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, promoted)

	added, err = store.Users.AddPendingRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, added, "already connected")

	_, err = store.Users.AddToSet(ctx, primitive.NewObjectID(), repository.SetFollowers, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPullEverywhere(t *testing.T) {
	store := New()
	ctx := context.Background()
	a := &models.User{Email: "a@example.com"}
	b := &models.User{Email: "b@example.com"}
	c := &models.User{Email: "c@example.com"}
	for _, u := range []*models.User{a, b, c} {
		require.NoError(t, store.Users.Create(ctx, u))
	}
	gone := primitive.NewObjectID()
	_, err := store.Users.AddToSet(ctx, a.ID, repository.SetConnections, gone)
	require.NoError(t, err)
	_, err = store.Users.AddToSet(ctx, a.ID, repository.SetFollowers, gone)
	require.NoError(t, err)
	_, err = store.Users.AddToSet(ctx, b.ID, repository.SetPending, gone)
	require.NoError(t, err)
	_, err = store.Users.AddToSet(ctx, b.ID, repository.SetFollowing, c.ID)
	require.NoError(t, err)

	changed, err := store.Users.PullEverywhere(ctx, gone)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	got, err := store.Users.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Connections)
	assert.Empty(t, got.Followers)
	got, err = store.Users.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingConnections)
	assert.Equal(t, []primitive.ObjectID{c.ID}, got.Following)
}

func TestConversationKeyIgnoresOrder(t *testing.T) {
	store := New()
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	job := primitive.NewObjectID()

	first, err := store.Conversations.FindOrCreate(ctx, a, b, nil)
	require.NoError(t, err)
	second, err := store.Conversations.FindOrCreate(ctx, b, a, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	scoped, err := store.Conversations.FindOrCreate(ctx, a, b, &job)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, scoped.ID)

	ids, err := store.Conversations.IDsForUser(ctx, a)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestPushSubscriptionUpsertKeepsOnePerUser(t *testing.T) {
	store := New()
	ctx := context.Background()
	user := primitive.NewObjectID()

	require.NoError(t, store.PushSubscriptions.Upsert(ctx, &models.PushSubscription{UserID: user, Sub: webpush.Subscription{Endpoint: "https://push/1"}}))
	require.NoError(t, store.PushSubscriptions.Upsert(ctx, &models.PushSubscription{UserID: user, Sub: webpush.Subscription{Endpoint: "https://push/2"}}))

	sub, err := store.PushSubscriptions.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "https://push/2", sub.Sub.Endpoint)

	require.NoError(t, store.PushSubscriptions.DeleteByUser(ctx, user))
	_, err = store.PushSubscriptions.FindByUser(ctx, user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
