package cmd

import (
	"context"
	"testing"

	"networked/models"
	"networked/repository"
	"networked/repository/memstore"
	"networked/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	svc := services.New(memstore.New(), nil)

	report, err := Seed(ctx, svc, SeedOptions{
		Users:      6,
		Companies:  2,
		Password:   "password",
		AdminEmail: "admin@example.com",
		Seed:       42,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, report.Users)
	assert.Equal(t, 2, report.Companies)
	assert.Equal(t, 6, report.Posts)
	assert.Equal(t, 3, report.Connections)
	assert.Equal(t, report.Jobs, report.Applications)

	admin, err := svc.Accounts.Login(ctx, "admin@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	admins, err := svc.Store.Users.Search(ctx, repository.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	stats, err := svc.Admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6+2+1, stats.Stats.Users)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := services.New(memstore.New(), nil)
	require.NoError(t, seedAdmin(ctx, svc, "admin@example.com", "password"))
	require.NoError(t, seedAdmin(ctx, svc, "ADMIN@example.com", "password"))

	admins, err := svc.Store.Users.Search(ctx, repository.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}
