// Package push delivers persisted notifications to browsers through the Web
// Push protocol.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// notificationEvent is the only live event mirrored to web push.
	notificationEvent = "notification"
	maxBodyLength     = 100
)

type Keys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

type Sender struct {
	subs   repository.PushSubscriptionRepository
	keys   Keys
	client webpush.HTTPClient
}

func NewSender(subs repository.PushSubscriptionRepository, keys Keys) *Sender {
	return &Sender{subs: subs, keys: keys, client: &http.Client{Timeout: 10 * time.Second}}
}

// WithClient replaces the HTTP client used to reach push services.
func (s *Sender) WithClient(c webpush.HTTPClient) *Sender {
	s.client = c
	return s
}

func (s *Sender) PublicKey() string {
	return s.keys.PublicKey
}

// Subscribe stores the browser subscription, replacing any previous one.
func (s *Sender) Subscribe(ctx context.Context, user primitive.ObjectID, sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return errors.New("incomplete push subscription")
	}
	return s.subs.Upsert(ctx, &models.PushSubscription{UserID: user, Sub: sub})
}

// Push mirrors notification events to the recipient's browser in the
// background. Every other event is live-only.
func (s *Sender) Push(recipient primitive.ObjectID, event string, payload interface{}) {
	if event != notificationEvent {
		return
	}
	n, ok := payload.(*models.Notification)
	if !ok {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.S().Errorf("[WebPush] panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Deliver(ctx, recipient, n); err != nil {
			zap.S().Warnf("[WebPush] deliver to %s: %v", recipient.Hex(), err)
		}
	}()
}

type message struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Data  map[string]interface{} `json:"data"`
}

// truncate cuts s to at most n characters, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Deliver sends one notification. A user without a subscription is not an
// error; a subscription the push service reports as gone is deleted.
func (s *Sender) Deliver(ctx context.Context, recipient primitive.ObjectID, n *models.Notification) error {
	sub, err := s.subs.FindByUser(ctx, recipient)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load subscription")
	}

	body := truncate(n.Message, maxBodyLength)
	data := map[string]interface{}{
		"type":      n.Type,
		"timestamp": n.CreatedAt.Unix(),
	}
	if n.Reference != nil {
		data["reference"] = n.Reference
	}
	raw, err := json.Marshal(message{Title: "networked", Body: body, Data: data})
	if err != nil {
		return errors.Wrap(err, "marshal push payload")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, raw, &sub.Sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.keys.Subject,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             30,
	})
	if err != nil {
		return errors.Wrap(err, "send push")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		zap.S().Infof("[WebPush] subscription of %s expired, deleting", recipient.Hex())
		return errors.Wrap(s.subs.DeleteByUser(ctx, recipient), "delete expired subscription")
	case resp.StatusCode >= 400:
		return errors.Errorf("push service answered %d", resp.StatusCode)
	}
	return nil
}

// GenerateKeys returns a fresh VAPID key pair.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", errors.Wrap(err, "generate vapid keys")
	}
	return publicKey, privateKey, nil
}
