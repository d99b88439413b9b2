package services

import (
	"context"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Live event names emitted to a user's room.
const (
	EventNotification = "notification"
	EventNewMessage   = "newMessage"
	EventTypingStart  = "typing_start"
	EventTypingEnd    = "typing_end"
)

// Pusher delivers an event to whatever live sessions a user has. Delivery is
// best effort and nothing is reported back.
type Pusher interface {
	Push(recipient primitive.ObjectID, event string, payload interface{})
}

// FanOut pushes every event to each of its pushers.
type FanOut []Pusher

func (f FanOut) Push(recipient primitive.ObjectID, event string, payload interface{}) {
	for _, p := range f {
		p.Push(recipient, event, payload)
	}
}

type Notifier struct {
	notifications repository.NotificationRepository
	pusher        Pusher
}

func NewNotifier(notifications repository.NotificationRepository, pusher Pusher) *Notifier {
	return &Notifier{notifications: notifications, pusher: pusher}
}

// Notify persists the notification and then pushes it live. A push failure
// never undoes or fails the persisted write.
func (n *Notifier) Notify(ctx context.Context, recipient primitive.ObjectID, sender *primitive.ObjectID, typ models.NotificationType, ref *models.Reference, message string) (*models.Notification, error) {
	notif := &models.Notification{
		Recipient: recipient,
		Sender:    sender,
		Type:      typ,
		Reference: ref,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := n.notifications.Create(ctx, notif); err != nil {
		return nil, errors.Wrapf(err, "persist %s notification", typ)
	}
	n.Emit(recipient, EventNotification, notif)
	return notif, nil
}

// Emit pushes an event without persisting anything.
func (n *Notifier) Emit(recipient primitive.ObjectID, event string, payload interface{}) {
	if n.pusher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("[Push] %s to %s panicked: %v", event, recipient.Hex(), r)
		}
	}()
	n.pusher.Push(recipient, event, payload)
}

func (n *Notifier) List(ctx context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	list, err := n.notifications.ListForRecipient(ctx, recipient, 50)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return list, nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	count, err := n.notifications.MarkAllRead(ctx, recipient)
	if err != nil {
		return 0, errors.Wrap(err, "mark notifications read")
	}
	return count, nil
}

// MarkRead flags one of the recipient's own notifications.
func (n *Notifier) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error {
	ok, err := n.notifications.MarkRead(ctx, id, recipient)
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	if !ok {
		return NotFound("Notification not found")
	}
	return nil
}

func (n *Notifier) UnreadCount(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	count, err := n.notifications.CountUnread(ctx, recipient)
	if err != nil {
		return 0, errors.Wrap(err, "count unread notifications")
	}
	return count, nil
}
