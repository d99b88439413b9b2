// Package handlers is the JSON HTTP surface. Handlers bind and validate the
// request, call one service operation and map its result to a response.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"networked/middleware"
	"networked/models"
	"networked/push"
	"networked/services"
	"networked/uploads"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const requestTimeout = 10 * time.Second

type Deps struct {
	Services *services.Services
	Tokens   *middleware.Tokens
	Uploads  *uploads.Uploader
	// Push and Google are nil when not configured.
	Push   *push.Sender
	Google *oauth2.Config
}

type Handler struct {
	svc     *services.Services
	tokens  *middleware.Tokens
	uploads *uploads.Uploader
	push    *push.Sender
	google  *oauth2.Config
}

func New(d Deps) *Handler {
	return &Handler{svc: d.Services, tokens: d.Tokens, uploads: d.Uploads, push: d.Push, google: d.Google}
}

// respondError writes the status for a service error, or logs err and answers
// 500 with a generic message.
func respondError(c *gin.Context, op string, err error) {
	if se, ok := services.AsError(err); ok {
		status := http.StatusBadRequest
		switch se.Kind {
		case services.KindUnauthorized:
			status = http.StatusUnauthorized
		case services.KindForbidden:
			status = http.StatusForbidden
		case services.KindNotFound:
			status = http.StatusNotFound
		case services.KindConflict:
			status = http.StatusConflict
		}
		body := gin.H{"error": se.Message}
		if len(se.Fields) > 0 {
			body["fields"] = se.Fields
		}
		c.JSON(status, body)
		return
	}
	zap.S().Errorf("[%s] %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong, please try again"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// idParam parses an ObjectID path parameter, answering 400 when it is malformed.
func idParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// saveUploads stores the named file fields of a multipart request. It answers
// the request itself and returns false when a file is rejected, before any
// domain write happens.
func (h *Handler) saveUploads(c *gin.Context, fields ...string) (map[string]uploads.Stored, bool) {
	if !isMultipart(c) {
		return map[string]uploads.Stored{}, true
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+1<<20)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
		return nil, false
	}

	ctx, cancel := newContext()
	defer cancel()
	stored, err := h.uploads.Save(ctx, form, fields...)
	switch {
	case err == nil:
		return stored, true
	case err == uploads.ErrTooLarge:
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
	case uploads.IsRejection(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
	default:
		respondError(c, "Upload", err)
	}
	return nil, false
}

// discard removes files saved for a request that did not go through.
func (h *Handler) discard(stored map[string]uploads.Stored) {
	if len(stored) == 0 {
		return
	}
	ctx, cancel := newContext()
	defer cancel()
	h.uploads.Discard(ctx, stored)
}

func media(stored map[string]uploads.Stored, field string) *services.Media {
	s, ok := stored[field]
	if !ok {
		return nil
	}
	return &services.Media{URL: s.URL, Kind: s.Kind}
}
