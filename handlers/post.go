package handlers

import (
	"net/http"

	"networked/models"

	"github.com/gin-gonic/gin"
)

type CreatePostRequest struct {
	Content    string `json:"content" form:"content"`
	Visibility string `json:"visibility" form:"visibility"`
}

type ReactRequest struct {
	Type string `json:"type" form:"type"`
}

type CommentRequest struct {
	Content string `json:"content" form:"content"`
}

// Feed is the home page: the viewer's feed plus their badge counters.
func (h *Handler) Feed(c *gin.Context) {
	user := currentUser(c)
	ctx, cancel := newContext()
	defer cancel()

	posts, err := h.svc.Content.Feed(ctx, user)
	if err != nil {
		respondError(c, "Feed", err)
		return
	}
	counters, err := h.svc.Counters.Snapshot(ctx, user)
	if err != nil {
		respondError(c, "Feed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "counters": counters})
}

func (h *Handler) CreatePost(c *gin.Context) {
	stored, ok := h.saveUploads(c, "postMedia")
	if !ok {
		return
	}
	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		h.discard(stored)
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	post, err := h.svc.Content.CreatePost(ctx, currentUser(c), req.Content, models.Visibility(req.Visibility), media(stored, "postMedia"))
	if err != nil {
		h.discard(stored)
		respondError(c, "CreatePost", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) React(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ReactRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx, cancel := newContext()
	defer cancel()

	res, err := h.svc.Content.React(ctx, currentUser(c), postID, models.ReactionKind(req.Type))
	if err != nil {
		respondError(c, "React", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Comment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	stored, ok := h.saveUploads(c, "postMedia")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.discard(stored)
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	comment, err := h.svc.Content.Comment(ctx, currentUser(c), postID, req.Content, media(stored, "postMedia"))
	if err != nil {
		h.discard(stored)
		respondError(c, "Comment", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) DeletePost(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Content.DeletePost(ctx, currentUser(c), postID); err != nil {
		respondError(c, "DeletePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *Handler) DeleteComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "commentId")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Content.DeleteComment(ctx, currentUser(c), postID, commentID); err != nil {
		respondError(c, "DeleteComment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
