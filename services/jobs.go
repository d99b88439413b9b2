package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Jobs struct {
	jobs      repository.JobRepository
	users     repository.UserRepository
	messaging *Messaging
	notifier  *Notifier
}

func NewJobs(jobs repository.JobRepository, users repository.UserRepository, messaging *Messaging, notifier *Notifier) *Jobs {
	return &Jobs{jobs: jobs, users: users, messaging: messaging, notifier: notifier}
}

type JobInput struct {
	Title            string
	Description      string
	Requirements     []string
	Responsibilities []string
	Type             models.JobType
	Location         string
	Remote           bool
	SalaryMin        *int
	SalaryMax        *int
	Currency         string
	Skills           []string
	Experience       string
	Education        string
	Deadline         *time.Time
}

func (in *JobInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "Description is required"
	}
	if !in.Type.Valid() {
		fields["type"] = "Job type must be Full-time, Part-time, Internship, Freelance or Contract"
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		fields["salaryMax"] = "Maximum salary must not be below the minimum"
	}
	if len(fields) > 0 {
		return FieldErrors(fields)
	}
	return nil
}

func cleanList(items []string) []string {
	out := []string{}
	for _, v := range items {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CreateJob posts an active job owned by the company account.
func (s *Jobs) CreateJob(ctx context.Context, company *models.User, in JobInput) (*models.Job, error) {
	if company.Role != models.RoleCompany && company.Role != models.RoleAdmin {
		return nil, Forbidden("Only company accounts can post jobs")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	job := &models.Job{
		Company:          company.ID,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Requirements:     cleanList(in.Requirements),
		Responsibilities: cleanList(in.Responsibilities),
		Type:             in.Type,
		Location:         strings.TrimSpace(in.Location),
		Remote:           in.Remote,
		Salary:           models.Salary{Min: in.SalaryMin, Max: in.SalaryMax, Currency: currency},
		Skills:           cleanList(in.Skills),
		Experience:       in.Experience,
		Education:        in.Education,
		IsActive:         true,
		Deadline:         in.Deadline,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, errors.Wrap(err, "create job")
	}
	return job, nil
}

type ApplicationView struct {
	models.Application
	Applicant models.UserSummary `json:"applicant"`
}

type JobView struct {
	models.Job
	Company      models.UserSummary `json:"company"`
	Applications []ApplicationView  `json:"applications,omitempty"`
	Applicants   int                `json:"applicantCount"`
	HasApplied   bool               `json:"hasApplied"`
	IsOwner      bool               `json:"isOwner"`
}

type JobSearch struct {
	Search     string
	Type       models.JobType
	RemoteOnly bool
	Location   string
}

// Search lists active jobs, newest first.
func (s *Jobs) Search(ctx context.Context, viewer *models.User, q JobSearch) ([]JobView, error) {
	jobs, err := s.jobs.Search(ctx, repository.JobFilter{
		Search:     q.Search,
		Type:       q.Type,
		RemoteOnly: q.RemoteOnly,
		Location:   q.Location,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search jobs")
	}
	return s.views(ctx, jobs, viewer)
}

// MyJobs lists every job the company posted, with applicants resolved.
func (s *Jobs) MyJobs(ctx context.Context, company *models.User) ([]JobView, error) {
	jobs, err := s.jobs.Search(ctx, repository.JobFilter{Company: &company.ID})
	if err != nil {
		return nil, errors.Wrap(err, "list company jobs")
	}
	return s.views(ctx, jobs, company)
}

func (s *Jobs) GetJob(ctx context.Context, viewer *models.User, id primitive.ObjectID) (*JobView, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Job not found", "load job")
	}
	views, err := s.views(ctx, []models.Job{*job}, viewer)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views resolves company and applicant summaries. Applications are only
// listed to the owning company or an admin.
func (s *Jobs) views(ctx context.Context, jobs []models.Job, viewer *models.User) ([]JobView, error) {
	var ids []primitive.ObjectID
	for _, j := range jobs {
		ids = append(ids, j.Company)
		if j.Company == viewer.ID || viewer.Role == models.RoleAdmin {
			for _, a := range j.Applications {
				ids = append(ids, a.Applicant)
			}
		}
	}
	byID, err := userIndex(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		v := JobView{
			Job:        j,
			Company:    summaryOf(byID, j.Company),
			Applicants: len(j.Applications),
			HasApplied: j.ApplicationBy(viewer.ID) != nil,
			IsOwner:    j.Company == viewer.ID,
		}
		if v.IsOwner || viewer.Role == models.RoleAdmin {
			v.Applications = make([]ApplicationView, 0, len(j.Applications))
			for _, a := range j.Applications {
				v.Applications = append(v.Applications, ApplicationView{Application: a, Applicant: summaryOf(byID, a.Applicant)})
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// ApplyResult points the applicant at the conversation opened with the company.
type ApplyResult struct {
	Application  models.Application `json:"application"`
	Conversation primitive.ObjectID `json:"conversationId"`
}

// Apply records the application, then opens (or reuses) the conversation
// scoped to the job, posts the cover letter into it and notifies the
// company. The application write is the only guarded step; the rest is
// at-least-once and a failure after it leaves the application in place.
func (s *Jobs) Apply(ctx context.Context, applicant *models.User, jobID primitive.ObjectID, coverLetter string) (*ApplyResult, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, orNotFound(err, "Job not found", "load job")
	}
	if job.Company == applicant.ID {
		return nil, Validation("You cannot apply to your own job")
	}
	if job.ApplicationBy(applicant.ID) != nil {
		return nil, Conflict("You have already applied to this job")
	}
	if !job.IsActive {
		return nil, Conflict("This job is no longer accepting applications")
	}

	coverLetter = strings.TrimSpace(coverLetter)
	app := models.Application{
		ID:          primitive.NewObjectID(),
		Applicant:   applicant.ID,
		Status:      models.ApplicationPending,
		AppliedAt:   time.Now(),
		CoverLetter: coverLetter,
	}
	added, err := s.jobs.AddApplication(ctx, jobID, app)
	if err != nil {
		return nil, errors.Wrap(err, "add application")
	}
	if !added {
		// the guard missed: either a concurrent duplicate or a close won
		current, err := s.jobs.FindByID(ctx, jobID)
		if err == nil && !current.IsActive && current.ApplicationBy(applicant.ID) == nil {
			return nil, Conflict("This job is no longer accepting applications")
		}
		return nil, Conflict("You have already applied to this job")
	}

	conv, err := s.messaging.conversations.FindOrCreate(ctx, applicant.ID, job.Company, &job.ID)
	if err != nil {
		return nil, errors.Wrap(err, "open application conversation")
	}

	body := coverLetter
	if body == "" {
		body = "No cover letter provided."
	}
	if _, err := s.messaging.append(ctx, conv, applicant.ID, fmt.Sprintf("Application for: %s\n\n%s", job.Title, body)); err != nil {
		return nil, err
	}

	if _, err := s.notifier.Notify(ctx, job.Company, &applicant.ID, models.NotifyJobApplication,
		models.JobRef(job.ID), fmt.Sprintf("%s applied to %s", applicant.DisplayName(), job.Title)); err != nil {
		return nil, err
	}
	return &ApplyResult{Application: app, Conversation: conv.ID}, nil
}

// UpdateApplication moves an application along its state machine. Only the
// owning company may do it, and the write is conditional on the status the
// decision was based on.
func (s *Jobs) UpdateApplication(ctx context.Context, company *models.User, jobID, applicantID primitive.ObjectID, status models.ApplicationStatus) error {
	if !status.Valid() {
		return FieldErrors(map[string]string{"status": "Unknown application status"})
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return orNotFound(err, "Job not found", "load job")
	}
	if job.Company != company.ID {
		return Forbidden("Not authorized")
	}
	app := job.ApplicationBy(applicantID)
	if app == nil {
		return NotFound("Application not found")
	}
	if !app.Status.CanTransitionTo(status) {
		return Conflict(fmt.Sprintf("Cannot change an application from %s to %s", app.Status, status))
	}

	ok, err := s.jobs.SetApplicationStatus(ctx, jobID, company.ID, applicantID, app.Status, status)
	if err != nil {
		return errors.Wrap(err, "update application")
	}
	if !ok {
		return Conflict("Application was updated concurrently, please reload")
	}
	return nil
}

// CloseJob deactivates the job. Jobs are never deleted.
func (s *Jobs) CloseJob(ctx context.Context, actor *models.User, jobID primitive.ObjectID) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return orNotFound(err, "Job not found", "load job")
	}
	if job.Company != actor.ID && actor.Role != models.RoleAdmin {
		return Forbidden("Not authorized")
	}
	if _, err := s.jobs.Close(ctx, jobID); err != nil {
		return errors.Wrap(err, "close job")
	}
	return nil
}

// CloseExpired deactivates every active job whose deadline has passed.
func (s *Jobs) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.jobs.CloseExpired(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "close expired jobs")
	}
	if n > 0 {
		zap.S().Infof("[CloseExpired] closed %d jobs past their deadline", n)
	}
	return n, nil
}
