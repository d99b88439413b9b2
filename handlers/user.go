package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"networked/models"
	"networked/repository"
	"networked/services"

	"github.com/gin-gonic/gin"
)

type ProfileRequest struct {
	FirstName          *string `json:"firstName" form:"firstName"`
	LastName           *string `json:"lastName" form:"lastName"`
	Headline           *string `json:"headline" form:"headline"`
	Bio                *string `json:"bio" form:"bio"`
	Phone              *string `json:"phone" form:"phone"`
	Address            *string `json:"address" form:"address"`
	City               *string `json:"city" form:"city"`
	Country            *string `json:"country" form:"country"`
	Website            *string `json:"website" form:"website"`
	LinkedIn           *string `json:"linkedin" form:"linkedin"`
	GitHub             *string `json:"github" form:"github"`
	CompanyName        *string `json:"companyName" form:"companyName"`
	CompanyDescription *string `json:"companyDescription" form:"companyDescription"`
	CompanySize        *string `json:"companySize" form:"companySize"`
	Industry           *string `json:"industry" form:"industry"`
}

func (h *Handler) GetMyProfile(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	user, err := h.svc.Accounts.Get(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "GetMyProfile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMyProfile accepts JSON or a multipart form carrying profilePhoto and
// cvVideo files.
func (h *Handler) UpdateMyProfile(c *gin.Context) {
	stored, ok := h.saveUploads(c, "profilePhoto", "cvVideo")
	if !ok {
		return
	}
	var req ProfileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			h.discard(stored)
			badRequest(c, err)
			return
		}
	}

	ctx, cancel := newContext()
	defer cancel()

	in := services.ProfileInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Headline:           req.Headline,
		Bio:                req.Bio,
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		Country:            req.Country,
		Website:            req.Website,
		LinkedIn:           req.LinkedIn,
		GitHub:             req.GitHub,
		CompanyName:        req.CompanyName,
		CompanyDescription: req.CompanyDescription,
		CompanySize:        req.CompanySize,
		Industry:           req.Industry,
	}
	if s, ok := stored["profilePhoto"]; ok {
		in.Photo = s.URL
	}
	if s, ok := stored["cvVideo"]; ok {
		in.CVVideo = s.URL
	}
	user, err := h.svc.Accounts.UpdateProfile(ctx, currentUser(c), in)
	if err != nil {
		h.discard(stored)
		respondError(c, "UpdateMyProfile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	view, err := h.svc.Accounts.ViewProfile(ctx, currentUser(c), id)
	if err != nil {
		respondError(c, "GetProfile", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DownloadCV renders the caller's profile as a PDF attachment.
func (h *Handler) DownloadCV(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	user, err := h.svc.Accounts.Get(ctx, currentUser(c).ID)
	if err != nil {
		respondError(c, "DownloadCV", err)
		return
	}
	var buf bytes.Buffer
	if err := services.WriteCV(&buf, user); err != nil {
		respondError(c, "DownloadCV", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.CVFileName(user)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// addItem binds one embedded profile entry of type T and stores it with add.
func addItem[T any](op string, add func(context.Context, *models.User, T) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			badRequest(c, err)
			return
		}
		ctx, cancel := newContext()
		defer cancel()

		saved, err := add(ctx, currentUser(c), item)
		if err != nil {
			respondError(c, op, err)
			return
		}
		c.JSON(http.StatusCreated, saved)
	}
}

func (h *Handler) AddSkill() gin.HandlerFunc {
	return addItem[models.Skill]("AddSkill", h.svc.Accounts.AddSkill)
}

func (h *Handler) AddExperience() gin.HandlerFunc {
	return addItem[models.Experience]("AddExperience", h.svc.Accounts.AddExperience)
}

func (h *Handler) AddEducation() gin.HandlerFunc {
	return addItem[models.Education]("AddEducation", h.svc.Accounts.AddEducation)
}

func (h *Handler) AddProject() gin.HandlerFunc {
	return addItem[models.Project]("AddProject", h.svc.Accounts.AddProject)
}

// RemoveItem deletes the :itemId entry from list.
func (h *Handler) RemoveItem(list repository.ProfileList) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := idParam(c, "itemId")
		if !ok {
			return
		}
		ctx, cancel := newContext()
		defer cancel()

		if err := h.svc.Accounts.RemoveItem(ctx, currentUser(c), list, itemID); err != nil {
			respondError(c, "RemoveItem", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Removed"})
	}
}

