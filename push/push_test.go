package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"networked/models"
	"networked/repository"
	"networked/repository/memstore"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func browserSubscription(t *testing.T, endpoint string) webpush.Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(secret),
		},
	}
}

func newSender(t *testing.T) (*Sender, repository.PushSubscriptionRepository) {
	t.Helper()
	public, private, err := GenerateKeys()
	require.NoError(t, err)
	subs := memstore.New().PushSubscriptions
	return NewSender(subs, Keys{PublicKey: public, PrivateKey: private, Subject: "mailto:test@example.com"}), subs
}

func notification(recipient primitive.ObjectID) *models.Notification {
	return &models.Notification{
		Recipient: recipient,
		Type:      models.NotifyMessage,
		Message:   "New message from Alice",
		CreatedAt: time.Now(),
	}
}

func TestDeliverSendsToSubscription(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender, _ := newSender(t)
	user := primitive.NewObjectID()
	ctx := context.Background()
	require.NoError(t, sender.Subscribe(ctx, user, browserSubscription(t, server.URL)))

	require.NoError(t, sender.Deliver(ctx, user, notification(user)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDeliverDropsExpiredSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	sender, subs := newSender(t)
	user := primitive.NewObjectID()
	ctx := context.Background()
	require.NoError(t, sender.Subscribe(ctx, user, browserSubscription(t, server.URL)))

	require.NoError(t, sender.Deliver(ctx, user, notification(user)))
	_, err := subs.FindByUser(ctx, user)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeliverWithoutSubscription(t *testing.T) {
	sender, _ := newSender(t)
	user := primitive.NewObjectID()
	assert.NoError(t, sender.Deliver(context.Background(), user, notification(user)))
}

func TestSubscribeRejectsIncomplete(t *testing.T) {
	sender, _ := newSender(t)
	err := sender.Subscribe(context.Background(), primitive.NewObjectID(), webpush.Subscription{Endpoint: "https://push.example"})
	assert.Error(t, err)
}

func TestTruncateKeepsWholeCharacters(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("a", 99) + "émile sent you a message"
	got := truncate(long, 100)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 99)+"é...", got)
}
