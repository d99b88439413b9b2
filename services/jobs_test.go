package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"networked/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJob(t *testing.T, s *Services, company *models.User, title string) *models.Job {
	t.Helper()
	job, err := s.Jobs.CreateJob(context.Background(), company, JobInput{
		Title:       title,
		Description: "Build things",
		Type:        models.JobFullTime,
		Skills:      []string{"Go", " ", "MongoDB"},
	})
	require.NoError(t, err)
	return job
}

func TestCreateJob(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)

	_, err := s.Jobs.CreateJob(ctx, dev, JobInput{Title: "x", Description: "y", Type: models.JobFullTime})
	requireKind(t, err, KindForbidden)

	_, err = s.Jobs.CreateJob(ctx, acme, JobInput{Type: "Gig"})
	requireKind(t, err, KindValidation)
	se, _ := AsError(err)
	assert.Contains(t, se.Fields, "title")
	assert.Contains(t, se.Fields, "type")

	job := postJob(t, s, acme, "Backend Engineer")
	assert.True(t, job.IsActive)
	assert.Equal(t, "USD", job.Salary.Currency)
	assert.Equal(t, []string{"Go", "MongoDB"}, job.Skills)
}

func TestApplyScenario(t *testing.T) {
	s, pusher := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	job := postJob(t, s, acme, "Backend Engineer")

	res, err := s.Jobs.Apply(ctx, dev, job.ID, "I love Go")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, res.Application.Status)

	stored, err := s.Store.Jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, stored.Applications, 1)
	assert.Equal(t, dev.ID, stored.Applications[0].Applicant)

	thread, err := s.Messaging.OpenConversation(ctx, acme, res.Conversation)
	require.NoError(t, err)
	require.NotNil(t, thread.Job)
	assert.Equal(t, job.ID, thread.Job.ID)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "Application for: Backend Engineer\n\nI love Go", thread.Messages[0].Content)
	assert.Equal(t, dev.ID, thread.Messages[0].Sender.ID)

	apps := notificationsOf(t, s, acme, models.NotifyJobApplication)
	require.Len(t, apps, 1)
	assert.Equal(t, "Dev Tester applied to Backend Engineer", apps[0].Message)
	assert.NotEmpty(t, pusher.For(acme.ID, EventNotification))

	_, err = s.Jobs.Apply(ctx, dev, job.ID, "again")
	requireKind(t, err, KindConflict)

	_, err = s.Jobs.Apply(ctx, acme, job.ID, "")
	requireKind(t, err, KindValidation)

	// the job conversation is separate from a direct one
	direct, err := s.Messaging.StartConversation(ctx, dev, acme.ID)
	require.NoError(t, err)
	assert.NotEqual(t, res.Conversation, direct.ID)
}

func TestApplyWithoutCoverLetter(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	job := postJob(t, s, acme, "SRE")

	res, err := s.Jobs.Apply(ctx, dev, job.ID, "  ")
	require.NoError(t, err)
	thread, err := s.Messaging.OpenConversation(ctx, dev, res.Conversation)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
	assert.True(t, strings.HasSuffix(thread.Messages[0].Content, "No cover letter provided."))
}

func TestConcurrentApplyStoresOneApplication(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	job := postJob(t, s, acme, "Backend Engineer")

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Jobs.Apply(ctx, dev, job.ID, "hi")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			requireKind(t, err, KindConflict)
		}
	}
	assert.Equal(t, 1, ok)
	stored, err := s.Store.Jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Applications, 1)
}

func TestApplyToClosedJob(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	job := postJob(t, s, acme, "Backend Engineer")

	requireKind(t, s.Jobs.CloseJob(ctx, dev, job.ID), KindForbidden)
	require.NoError(t, s.Jobs.CloseJob(ctx, acme, job.ID))

	_, err := s.Jobs.Apply(ctx, dev, job.ID, "please")
	requireKind(t, err, KindConflict)

	found, err := s.Jobs.Search(ctx, dev, JobSearch{})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUpdateApplicationTransitions(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	other := createUser(t, s, "Other", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	job := postJob(t, s, acme, "Backend Engineer")
	_, err := s.Jobs.Apply(ctx, dev, job.ID, "")
	require.NoError(t, err)

	requireKind(t, s.Jobs.UpdateApplication(ctx, other, job.ID, dev.ID, models.ApplicationReviewed), KindForbidden)
	requireKind(t, s.Jobs.UpdateApplication(ctx, acme, job.ID, dev.ID, "hired"), KindValidation)
	requireKind(t, s.Jobs.UpdateApplication(ctx, acme, job.ID, acme.ID, models.ApplicationReviewed), KindNotFound)

	require.NoError(t, s.Jobs.UpdateApplication(ctx, acme, job.ID, dev.ID, models.ApplicationReviewed))
	require.NoError(t, s.Jobs.UpdateApplication(ctx, acme, job.ID, dev.ID, models.ApplicationAccepted))
	requireKind(t, s.Jobs.UpdateApplication(ctx, acme, job.ID, dev.ID, models.ApplicationRejected), KindConflict)

	view, err := s.Jobs.GetJob(ctx, acme, job.ID)
	require.NoError(t, err)
	require.Len(t, view.Applications, 1)
	assert.Equal(t, models.ApplicationAccepted, view.Applications[0].Status)
	assert.Equal(t, "Dev", view.Applications[0].Applicant.FirstName)
}

func TestJobViewHidesApplicationsFromOthers(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	dev := createUser(t, s, "Dev", models.RoleUser)
	peer := createUser(t, s, "Peer", models.RoleUser)
	job := postJob(t, s, acme, "Backend Engineer")
	_, err := s.Jobs.Apply(ctx, dev, job.ID, "")
	require.NoError(t, err)

	view, err := s.Jobs.GetJob(ctx, peer, job.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Applications)
	assert.Equal(t, 1, view.Applicants)
	assert.False(t, view.HasApplied)

	view, err = s.Jobs.GetJob(ctx, dev, job.ID)
	require.NoError(t, err)
	assert.True(t, view.HasApplied)
	assert.Equal(t, "Acme Inc", view.Company.CompanyName)
}

func TestCloseExpired(t *testing.T) {
	s, _ := newTestServices(t)
	ctx := context.Background()
	acme := createUser(t, s, "Acme", models.RoleCompany)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired, err := s.Jobs.CreateJob(ctx, acme, JobInput{Title: "Old", Description: "d", Type: models.JobContract, Deadline: &past})
	require.NoError(t, err)
	open, err := s.Jobs.CreateJob(ctx, acme, JobInput{Title: "New", Description: "d", Type: models.JobContract, Deadline: &future})
	require.NoError(t, err)

	n, err := s.Jobs.CloseExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Store.Jobs.FindByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = s.Store.Jobs.FindByID(ctx, open.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
