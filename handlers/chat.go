package handlers

import (
	"context"
	"net/http"

	"networked/models"
	"networked/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) ListConversations(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	convs, err := h.svc.Messaging.ListConversations(ctx, currentUser(c))
	if err != nil {
		respondError(c, "ListConversations", err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// StartConversation returns the direct conversation with userId, creating it
// on first contact.
func (h *Handler) StartConversation(c *gin.Context) {
	otherID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	conv, err := h.svc.Messaging.StartConversation(ctx, currentUser(c), otherID)
	if err != nil {
		respondError(c, "StartConversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": conv.ID})
}

// Typing relays a typing frame received on a socket. It matches the
// websocket manager's typing hook.
func (h *Handler) Typing(ctx context.Context, userID, conversationID string, typing bool) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errors.Wrap(err, "typing user id")
	}
	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return services.Validation("Invalid conversation id")
	}
	return h.svc.Messaging.Typing(ctx, &models.User{ID: uid}, convID, typing)
}
