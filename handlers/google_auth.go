package handlers

import (
	"encoding/json"
	"net/http"

	"networked/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (h *Handler) googleConfigured(c *gin.Context) bool {
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google sign-in is not configured"})
		return false
	}
	return true
}

// GoogleAuthURL returns the consent URL. The state is a short-lived signed
// token so the callback can check it without server-side sessions.
func (h *Handler) GoogleAuthURL(c *gin.Context) {
	if !h.googleConfigured(c) {
		return
	}
	state, err := h.tokens.Issue(primitive.NewObjectID())
	if err != nil {
		respondError(c, "GoogleAuthURL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.google.AuthCodeURL(state)})
}

func (h *Handler) GoogleCallback(c *gin.Context) {
	if !h.googleConfigured(c) {
		return
	}
	if _, err := h.tokens.Parse(c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	token, err := h.google.Exchange(ctx, code)
	if err != nil {
		zap.S().Warnf("[GoogleCallback] code exchange failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google authentication failed"})
		return
	}

	resp, err := h.google.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		respondError(c, "GoogleCallback", errors.Wrap(err, "fetch google profile"))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondError(c, "GoogleCallback", errors.Errorf("google userinfo returned %d", resp.StatusCode))
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		respondError(c, "GoogleCallback", errors.Wrap(err, "decode google profile"))
		return
	}
	if !info.VerifiedEmail {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Google email is not verified"})
		return
	}

	user, err := h.svc.Accounts.GoogleSignIn(ctx, services.GoogleProfile{
		ID:         info.ID,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	})
	if err != nil {
		respondError(c, "GoogleCallback", err)
		return
	}
	h.issue(c, http.StatusOK, user)
}
