package handlers

import (
	"context"
	"net/http"

	"networked/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) Directory(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	users, err := h.svc.Network.Directory(ctx, currentUser(c), c.Query("search"))
	if err != nil {
		respondError(c, "Directory", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Connections(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	view, err := h.svc.Network.Connections(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "Connections", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type edgeOp func(ctx context.Context, user *models.User, other primitive.ObjectID) error

// edge adapts one graph operation on the :id user into a handler.
func (h *Handler) edge(op string, fn edgeOp, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		other, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx, cancel := newContext()
		defer cancel()

		if err := fn(ctx, currentUser(c), other); err != nil {
			respondError(c, op, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

func (h *Handler) Connect() gin.HandlerFunc {
	return h.edge("RequestConnection", h.svc.Network.RequestConnection, "Connection request sent")
}

func (h *Handler) Accept() gin.HandlerFunc {
	return h.edge("AcceptConnection", h.svc.Network.AcceptConnection, "Connection accepted")
}

func (h *Handler) Reject() gin.HandlerFunc {
	return h.edge("RejectConnection", h.svc.Network.RejectConnection, "Connection request rejected")
}

func (h *Handler) Disconnect() gin.HandlerFunc {
	return h.edge("Disconnect", h.svc.Network.Disconnect, "Connection removed")
}

func (h *Handler) Follow() gin.HandlerFunc {
	return h.edge("Follow", h.svc.Network.Follow, "Now following")
}

func (h *Handler) Unfollow() gin.HandlerFunc {
	return h.edge("Unfollow", h.svc.Network.Unfollow, "Unfollowed")
}
