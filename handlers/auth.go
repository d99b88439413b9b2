package handlers

import (
	"net/http"

	"networked/models"
	"networked/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	Password2   string `json:"password2" form:"password2"`
	FirstName   string `json:"firstName" form:"firstName"`
	LastName    string `json:"lastName" form:"lastName"`
	Role        string `json:"role" form:"role"`
	CompanyName string `json:"companyName" form:"companyName"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		respondError(c, "IssueToken", err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: user})
}

// Register accepts JSON or a multipart form with an optional photo.
func (h *Handler) Register(c *gin.Context) {
	stored, ok := h.saveUploads(c, "photo")
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		h.discard(stored)
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	reg := services.Registration{
		Email:       req.Email,
		Password:    req.Password,
		Password2:   req.Password2,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        models.Role(req.Role),
		CompanyName: req.CompanyName,
	}
	if p, ok := stored["photo"]; ok {
		reg.Photo = p.URL
	}
	user, err := h.svc.Accounts.Register(ctx, reg)
	if err != nil {
		h.discard(stored)
		respondError(c, "Register", err)
		return
	}
	zap.S().Infof("[Register] new %s account %s", user.Role, user.ID.Hex())
	h.issue(c, http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	user, err := h.svc.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, "Login", err)
		return
	}
	h.issue(c, http.StatusOK, user)
}
