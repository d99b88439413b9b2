package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"networked/models"
	"networked/repository/memstore"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pushed struct {
	Recipient primitive.ObjectID
	Event     string
	Payload   interface{}
}

type recordingPusher struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPusher) Push(recipient primitive.ObjectID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{recipient, event, payload})
}

func (p *recordingPusher) For(recipient primitive.ObjectID, event string) []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushed
	for _, e := range p.events {
		if e.Recipient == recipient && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type panicPusher struct{}

func (panicPusher) Push(primitive.ObjectID, string, interface{}) { panic("socket gone") }

func newTestServices(t *testing.T) (*Services, *recordingPusher) {
	t.Helper()
	p := &recordingPusher{}
	return New(memstore.New(), p), p
}

func createUser(t *testing.T, s *Services, first string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:     first + "-" + primitive.NewObjectID().Hex() + "@example.com",
		FirstName: first,
		LastName:  "Tester",
		Role:      role,
		Photo:     models.DefaultPhoto,
		CreatedAt: time.Now(),
	}
	if role == models.RoleCompany {
		u.CompanyName = first + " Inc"
	}
	require.NoError(t, s.Store.Users.Create(context.Background(), u))
	return u
}

func reload(t *testing.T, s *Services, u *models.User) *models.User {
	t.Helper()
	fresh, err := s.Accounts.Get(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func notificationsOf(t *testing.T, s *Services, u *models.User, typ models.NotificationType) []models.Notification {
	t.Helper()
	all, err := s.Notifier.List(context.Background(), u.ID)
	require.NoError(t, err)
	var out []models.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func requireKind(t *testing.T, err error, k Kind) {
	t.Helper()
	require.Error(t, err)
	se, ok := AsError(err)
	require.True(t, ok, "expected a service error, got %v", err)
	require.Equal(t, k, se.Kind, se.Message)
}
