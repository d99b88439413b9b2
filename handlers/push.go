package handlers

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *Handler) VapidPublicKey(c *gin.Context) {
	if h.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Web push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": h.push.PublicKey()})
}

func (h *Handler) SubscribePush(c *gin.Context) {
	if h.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Web push is not configured"})
		return
	}
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	user := currentUser(c)
	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys:     webpush.Keys{P256dh: req.Keys.P256dh, Auth: req.Keys.Auth},
	}
	if err := h.push.Subscribe(ctx, user.ID, sub); err != nil {
		respondError(c, "SubscribePush", err)
		return
	}
	zap.S().Infof("[SubscribePush] subscription saved for %s", user.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved"})
}
