package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	list, err := h.svc.Notifier.List(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "ListNotifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	n, err := h.svc.Notifier.MarkAllRead(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "MarkAllRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Notifier.MarkRead(ctx, id, currentUser(c).ID); err != nil {
		respondError(c, "MarkRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	n, err := h.svc.Notifier.UnreadCount(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "UnreadCount", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) Counters(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	snap, err := h.svc.Counters.Snapshot(ctx, currentUser(c))
	if err != nil {
		respondError(c, "Counters", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
