package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// OpenConversation returns the thread and marks the counterpart's messages read.
func (h *Handler) OpenConversation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	view, err := h.svc.Messaging.OpenConversation(ctx, currentUser(c), id)
	if err != nil {
		respondError(c, "OpenConversation", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	msg, err := h.svc.Messaging.Send(ctx, currentUser(c), id, req.Content)
	if err != nil {
		respondError(c, "SendMessage", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
