package handlers

import (
	"net/http"

	"networked/models"

	"github.com/gin-gonic/gin"
)

type BanRequest struct {
	Reason string `json:"reason" form:"reason"`
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	d, err := h.svc.Admin.Dashboard(ctx)
	if err != nil {
		respondError(c, "AdminDashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) AdminUsers(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	users, err := h.svc.Admin.Users(ctx, c.Query("search"), models.Role(c.Query("role")), c.Query("status"))
	if err != nil {
		respondError(c, "AdminUsers", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) BanUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req BanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Admin.Ban(ctx, currentUser(c), id, req.Reason); err != nil {
		respondError(c, "BanUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User banned"})
}

func (h *Handler) UnbanUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Admin.Unban(ctx, id); err != nil {
		respondError(c, "UnbanUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unbanned"})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Admin.DeleteUser(ctx, currentUser(c), id); err != nil {
		respondError(c, "DeleteUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *Handler) AdminPosts(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	posts, err := h.svc.Admin.Posts(ctx, c.Query("search"), c.Query("sort"))
	if err != nil {
		respondError(c, "AdminPosts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) AdminDeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Admin.DeletePost(ctx, currentUser(c), id); err != nil {
		respondError(c, "AdminDeletePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *Handler) AdminDeleteComment(c *gin.Context) {
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

	if err := h.svc.Admin.DeleteComment(ctx, currentUser(c), postID, commentID); err != nil {
		respondError(c, "AdminDeleteComment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
