package services

import (
	"context"
	"strings"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Messaging struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	jobs          repository.JobRepository
	notifier      *Notifier
}

func NewMessaging(conversations repository.ConversationRepository, messages repository.MessageRepository, users repository.UserRepository, jobs repository.JobRepository, notifier *Notifier) *Messaging {
	return &Messaging{conversations: conversations, messages: messages, users: users, jobs: jobs, notifier: notifier}
}

// StartConversation returns the direct conversation between the two users,
// creating it if needed. Concurrent starts converge on one conversation.
func (s *Messaging) StartConversation(ctx context.Context, user *models.User, otherID primitive.ObjectID) (*models.Conversation, error) {
	if user.ID == otherID {
		return nil, Validation("You cannot message yourself")
	}
	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		return nil, orNotFound(err, "User not found", "load recipient")
	}
	conv, err := s.conversations.FindOrCreate(ctx, user.ID, otherID, nil)
	if err != nil {
		return nil, errors.Wrap(err, "start conversation")
	}
	return conv, nil
}

func (s *Messaging) loadAsParticipant(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Conversation not found", "load conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, Forbidden("Not authorized")
	}
	return conv, nil
}

// append stores the message and moves the conversation pointer. A failed
// pointer update is logged and the message is kept.
func (s *Messaging) append(ctx context.Context, conv *models.Conversation, sender primitive.ObjectID, content string) (*models.Message, error) {
	msg := &models.Message{
		Conversation: conv.ID,
		Sender:       sender,
		Content:      content,
		CreatedAt:    time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "create message")
	}
	if err := s.conversations.SetLastMessage(ctx, conv.ID, msg.ID, msg.CreatedAt); err != nil {
		zap.S().Errorf("[SendMessage] update lastMessage of %s: %v", conv.ID.Hex(), err)
	}
	return msg, nil
}

type MessageView struct {
	ID        primitive.ObjectID `json:"id"`
	Content   string             `json:"content"`
	Sender    models.UserSummary `json:"sender"`
	Read      bool               `json:"read"`
	CreatedAt time.Time          `json:"createdAt"`
}

// NewMessageEvent is the live payload pushed to the other participant.
type NewMessageEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	Message        MessageView        `json:"message"`
}

// Send appends a message, persists a message notification for the other
// participant and pushes both events to their room.
func (s *Messaging) Send(ctx context.Context, sender *models.User, conversationID primitive.ObjectID, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, FieldErrors(map[string]string{"content": "Message cannot be empty"})
	}
	conv, err := s.loadAsParticipant(ctx, conversationID, sender.ID)
	if err != nil {
		return nil, err
	}

	msg, err := s.append(ctx, conv, sender.ID, content)
	if err != nil {
		return nil, err
	}
	view := MessageView{
		ID:        msg.ID,
		Content:   msg.Content,
		Sender:    sender.Summary(),
		CreatedAt: msg.CreatedAt,
	}

	recipient := conv.Other(sender.ID)
	if _, err := s.notifier.Notify(ctx, recipient, &sender.ID, models.NotifyMessage,
		models.MessageRef(msg.ID), "New message from "+sender.DisplayName()); err != nil {
		return nil, err
	}
	s.notifier.Emit(recipient, EventNewMessage, NewMessageEvent{ConversationID: conv.ID, Message: view})
	return &view, nil
}

type ConversationSummary struct {
	ID          primitive.ObjectID  `json:"id"`
	Other       models.UserSummary  `json:"otherUser"`
	Job         *primitive.ObjectID `json:"job,omitempty"`
	LastMessage *models.Message     `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// ListConversations returns the user's conversations, most recently active first.
func (s *Messaging) ListConversations(ctx context.Context, user *models.User) ([]ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}

	var others, lastIDs []primitive.ObjectID
	for _, c := range convs {
		others = append(others, c.Other(user.ID))
		if c.LastMessage != nil {
			lastIDs = append(lastIDs, *c.LastMessage)
		}
	}
	byUser, err := userIndex(ctx, s.users, others)
	if err != nil {
		return nil, err
	}
	last, err := s.messages.FindByIDs(ctx, lastIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load last messages")
	}
	lastByID := make(map[primitive.ObjectID]*models.Message, len(last))
	for i := range last {
		lastByID[last[i].ID] = &last[i]
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		item := ConversationSummary{
			ID:        c.ID,
			Other:     summaryOf(byUser, c.Other(user.ID)),
			Job:       c.Job,
			UpdatedAt: c.UpdatedAt,
		}
		if c.LastMessage != nil {
			item.LastMessage = lastByID[*c.LastMessage]
		}
		out = append(out, item)
	}
	return out, nil
}

type ConversationView struct {
	ID         primitive.ObjectID `json:"id"`
	Other      models.UserSummary `json:"otherUser"`
	Job        *models.Job        `json:"job,omitempty"`
	Messages   []MessageView      `json:"messages"`
	MarkedRead int64              `json:"markedRead"`
}

// OpenConversation returns the thread for a participant and marks every
// message the counterpart sent as read. The read-marking is a deliberate
// side effect of opening the thread and is logged.
func (s *Messaging) OpenConversation(ctx context.Context, viewer *models.User, conversationID primitive.ObjectID) (*ConversationView, error) {
	conv, err := s.loadAsParticipant(ctx, conversationID, viewer.ID)
	if err != nil {
		return nil, err
	}
	otherID := conv.Other(viewer.ID)

	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	byUser, err := userIndex(ctx, s.users, []primitive.ObjectID{viewer.ID, otherID})
	if err != nil {
		return nil, err
	}

	marked, err := s.messages.MarkRead(ctx, conv.ID, viewer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "mark messages read")
	}
	if marked > 0 {
		zap.S().Infof("[OpenConversation] %s marked %d messages read in %s", viewer.ID.Hex(), marked, conv.ID.Hex())
	}

	view := &ConversationView{
		ID:         conv.ID,
		Other:      summaryOf(byUser, otherID),
		Messages:   make([]MessageView, 0, len(msgs)),
		MarkedRead: marked,
	}
	if conv.Job != nil {
		if job, err := s.jobs.FindByID(ctx, *conv.Job); err == nil {
			view.Job = job
			view.Job.Applications = nil
		}
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, MessageView{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    summaryOf(byUser, m.Sender),
			Read:      m.Read || m.Sender != viewer.ID,
			CreatedAt: m.CreatedAt,
		})
	}
	return view, nil
}

// Typing relays a typing indicator to the other participant. Nothing is stored.
func (s *Messaging) Typing(ctx context.Context, user *models.User, conversationID primitive.ObjectID, typing bool) error {
	conv, err := s.loadAsParticipant(ctx, conversationID, user.ID)
	if err != nil {
		return err
	}
	event := EventTypingEnd
	if typing {
		event = EventTypingStart
	}
	s.notifier.Emit(conv.Other(user.ID), event, map[string]interface{}{
		"conversationId": conv.ID,
		"userId":         user.ID,
	})
	return nil
}
