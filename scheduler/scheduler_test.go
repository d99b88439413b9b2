package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"networked/models"
	"networked/repository/memstore"
	"networked/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	mu    sync.Mutex
	calls []time.Time
}

func (c *countingCloser) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, now)
	return 0, nil
}

func (c *countingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestRejectsBadSchedule(t *testing.T) {
	_, err := New("not a schedule", &countingCloser{})
	assert.Error(t, err)
}

func TestRunsOnSchedule(t *testing.T) {
	closer := &countingCloser{}
	s, err := New("@every 1s", closer)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return closer.count() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSweepClosesExpiredJobs(t *testing.T) {
	ctx := context.Background()
	svc := services.New(memstore.New(), nil)
	company := &models.User{Email: "hr@acme.example", Role: models.RoleCompany, FirstName: "Acme", CompanyName: "Acme"}
	require.NoError(t, svc.Store.Users.Create(ctx, company))

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired, err := svc.Jobs.CreateJob(ctx, company, services.JobInput{Title: "Old", Description: "d", Type: models.JobFullTime, Deadline: &past})
	require.NoError(t, err)
	open, err := svc.Jobs.CreateJob(ctx, company, services.JobInput{Title: "New", Description: "d", Type: models.JobFullTime, Deadline: &future})
	require.NoError(t, err)

	s, err := New("@every 1h", svc.Jobs)
	require.NoError(t, err)
	s.SweepJobs()

	got, err := svc.Store.Jobs.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = svc.Store.Jobs.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
