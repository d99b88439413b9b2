package services

import (
	"context"
	"testing"

	"networked/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBanAndUnban(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	admin := createUser(t, s, "Root", models.RoleAdmin)
	other := createUser(t, s, "Other", models.RoleAdmin)
	bob := createUser(t, s, "Bob", models.RoleUser)

	requireKind(t, s.Admin.Ban(ctx, admin, other.ID, ""), KindForbidden)

	require.NoError(t, s.Admin.Ban(ctx, admin, bob.ID, ""))
	banned := reload(t, s, bob)
	assert.True(t, banned.IsBanned)
	assert.Equal(t, "Violation of terms of service", banned.BanReason)

	notes := notificationsOf(t, s, bob, models.NotifyAdminAction)
	require.Len(t, notes, 1)
	assert.Equal(t, "Your account has been banned. Reason: Violation of terms of service", notes[0].Message)

	rows, err := s.Admin.Users(ctx, "", "", "banned")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bob.ID, rows[0].ID)

	require.NoError(t, s.Admin.Unban(ctx, bob.ID))
	unbanned := reload(t, s, bob)
	assert.False(t, unbanned.IsBanned)
	assert.Empty(t, unbanned.BanReason)

	rows, err = s.Admin.Users(ctx, "", models.RoleAdmin, "active")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDeleteUser(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	admin := createUser(t, s, "Root", models.RoleAdmin)
	acme := createUser(t, s, "Acme", models.RoleCompany)
	job := postJob(t, s, acme, "Backend Engineer")
	_, err := s.Content.CreatePost(ctx, acme, "we are hiring", "", nil)
	require.NoError(t, err)

	requireKind(t, s.Admin.DeleteUser(ctx, admin, admin.ID), KindForbidden)
	require.NoError(t, s.Admin.DeleteUser(ctx, admin, acme.ID))

	_, err = s.Accounts.Get(ctx, acme.ID)
	requireKind(t, err, KindNotFound)
	stored, err := s.Store.Jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	dash, err := s.Admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 1}, dash.Stats)
	assert.Empty(t, dash.RecentPosts)
}

func TestDeleteUserClearsRelations(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	admin := createUser(t, s, "Root", models.RoleAdmin)
	alice := createUser(t, s, "Alice", models.RoleUser)
	bob := createUser(t, s, "Bob", models.RoleUser)
	carol := createUser(t, s, "Carol", models.RoleUser)

	require.NoError(t, s.Network.RequestConnection(ctx, bob, alice.ID))
	require.NoError(t, s.Network.RequestConnection(ctx, carol, alice.ID))
	require.NoError(t, s.Network.AcceptConnection(ctx, alice, carol.ID))
	require.NoError(t, s.Network.Follow(ctx, alice, bob.ID))
	require.NoError(t, s.Network.Follow(ctx, carol, alice.ID))

	require.NoError(t, s.Admin.DeleteUser(ctx, admin, bob.ID))
	require.NoError(t, s.Admin.DeleteUser(ctx, admin, carol.ID))

	alice = reload(t, s, alice)
	assert.Empty(t, alice.PendingConnections)
	assert.Empty(t, alice.Connections)
	assert.Empty(t, alice.Followers)
	assert.Empty(t, alice.Following)

	snap, err := s.Counters.Snapshot(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, snap.PendingConnections)

	requireKind(t, s.Network.AcceptConnection(ctx, alice, bob.ID), KindNotFound)
	assert.Empty(t, reload(t, s, alice).Connections)
}

func TestAcceptFromMissingRequesterChangesNothing(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	alice := createUser(t, s, "Alice", models.RoleUser)
	ghost := primitive.NewObjectID()

	added, err := s.Store.Users.AddPendingRequest(ctx, alice.ID, ghost)
	require.NoError(t, err)
	require.True(t, added)

	requireKind(t, s.Network.AcceptConnection(ctx, alice, ghost), KindNotFound)
	alice = reload(t, s, alice)
	assert.Equal(t, []primitive.ObjectID{ghost}, alice.PendingConnections)
	assert.Empty(t, alice.Connections)
}

func TestAdminPosts(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	admin := createUser(t, s, "Root", models.RoleAdmin)
	alice := createUser(t, s, "Alice", models.RoleUser)
	first, err := s.Content.CreatePost(ctx, alice, "first post", "", nil)
	require.NoError(t, err)
	_, err = s.Content.CreatePost(ctx, alice, "second post", "", nil)
	require.NoError(t, err)

	posts, err := s.Admin.Posts(ctx, "", "oldest")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)

	posts, err = s.Admin.Posts(ctx, "SECOND", "")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	require.NoError(t, s.Admin.DeletePost(ctx, admin, first.ID))
	dash, err := s.Admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.Stats.Posts)
	assert.Len(t, dash.RecentUsers, 2)
}
