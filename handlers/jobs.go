package handlers

import (
	"net/http"
	"strconv"
	"time"

	"networked/models"
	"networked/services"

	"github.com/gin-gonic/gin"
)

type JobRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Requirements     []string   `json:"requirements"`
	Responsibilities []string   `json:"responsibilities"`
	Type             string     `json:"type"`
	Location         string     `json:"location"`
	Remote           bool       `json:"remote"`
	SalaryMin        *int       `json:"salaryMin"`
	SalaryMax        *int       `json:"salaryMax"`
	Currency         string     `json:"currency"`
	Skills           []string   `json:"skills"`
	Experience       string     `json:"experience"`
	Education        string     `json:"education"`
	Deadline         *time.Time `json:"deadline"`
}

type ApplyRequest struct {
	CoverLetter string `json:"coverLetter" form:"coverLetter"`
}

type ApplicationStatusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

func (h *Handler) ListJobs(c *gin.Context) {
	remote, _ := strconv.ParseBool(c.Query("remote"))
	ctx, cancel := newContext()
	defer cancel()

	jobs, err := h.svc.Jobs.Search(ctx, currentUser(c), services.JobSearch{
		Search:     c.Query("search"),
		Type:       models.JobType(c.Query("type")),
		RemoteOnly: remote,
		Location:   c.Query("location"),
	})
	if err != nil {
		respondError(c, "ListJobs", err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	job, err := h.svc.Jobs.CreateJob(ctx, currentUser(c), services.JobInput{
		Title:            req.Title,
		Description:      req.Description,
		Requirements:     req.Requirements,
		Responsibilities: req.Responsibilities,
		Type:             models.JobType(req.Type),
		Location:         req.Location,
		Remote:           req.Remote,
		SalaryMin:        req.SalaryMin,
		SalaryMax:        req.SalaryMax,
		Currency:         req.Currency,
		Skills:           req.Skills,
		Experience:       req.Experience,
		Education:        req.Education,
		Deadline:         req.Deadline,
	})
	if err != nil {
		respondError(c, "CreateJob", err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) MyJobs(c *gin.Context) {
	ctx, cancel := newContext()
	defer cancel()

	jobs, err := h.svc.Jobs.MyJobs(ctx, currentUser(c))
	if err != nil {
		respondError(c, "MyJobs", err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) GetJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	job, err := h.svc.Jobs.GetJob(ctx, currentUser(c), id)
	if err != nil {
		respondError(c, "GetJob", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) Apply(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ApplyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx, cancel := newContext()
	defer cancel()

	res, err := h.svc.Jobs.Apply(ctx, currentUser(c), id, req.CoverLetter)
	if err != nil {
		respondError(c, "Apply", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateApplication(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	applicantID, ok := idParam(c, "applicantId")
	if !ok {
		return
	}
	var req ApplicationStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := newContext()
	defer cancel()

	status := models.ApplicationStatus(req.Status)
	if err := h.svc.Jobs.UpdateApplication(ctx, currentUser(c), jobID, applicantID, status); err != nil {
		respondError(c, "UpdateApplication", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application updated", "status": status})
}

func (h *Handler) CloseJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.svc.Jobs.CloseJob(ctx, currentUser(c), id); err != nil {
		respondError(c, "CloseJob", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job closed"})
}
