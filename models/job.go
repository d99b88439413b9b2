package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JobType string

const (
	JobFullTime   JobType = "Full-time"
	JobPartTime   JobType = "Part-time"
	JobInternship JobType = "Internship"
	JobFreelance  JobType = "Freelance"
	JobContract   JobType = "Contract"
)

func (t JobType) Valid() bool {
	switch t {
	case JobFullTime, JobPartTime, JobInternship, JobFreelance, JobContract:
		return true
	}
	return false
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationReviewed ApplicationStatus = "reviewed"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReviewed, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the owning company may move an application
// from s to next. Accepted and rejected are terminal.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationPending:
		return next == ApplicationReviewed || next == ApplicationAccepted || next == ApplicationRejected
	case ApplicationReviewed:
		return next == ApplicationAccepted || next == ApplicationRejected
	}
	return false
}

type Salary struct {
	Min      *int   `bson:"min,omitempty" json:"min,omitempty"`
	Max      *int   `bson:"max,omitempty" json:"max,omitempty"`
	Currency string `bson:"currency" json:"currency"`
}

type Job struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Company          primitive.ObjectID `bson:"company" json:"company"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description" json:"description"`
	Requirements     []string           `bson:"requirements" json:"requirements"`
	Responsibilities []string           `bson:"responsibilities" json:"responsibilities"`
	Type             JobType            `bson:"type" json:"type"`
	Location         string             `bson:"location,omitempty" json:"location,omitempty"`
	Remote           bool               `bson:"remote" json:"remote"`
	Salary           Salary             `bson:"salary" json:"salary"`
	Skills           []string           `bson:"skills" json:"skills"`
	Experience       string             `bson:"experience,omitempty" json:"experience,omitempty"`
	Education        string             `bson:"education,omitempty" json:"education,omitempty"`
	Applications     []Application      `bson:"applications" json:"applications"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	Deadline         *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (j *Job) ApplicationBy(applicant primitive.ObjectID) *Application {
	for i := range j.Applications {
		if j.Applications[i].Applicant == applicant {
			return &j.Applications[i]
		}
	}
	return nil
}

func (j *Job) PendingApplications() int {
	n := 0
	for _, a := range j.Applications {
		if a.Status == ApplicationPending {
			n++
		}
	}
	return n
}

type Application struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Applicant   primitive.ObjectID `bson:"applicant" json:"applicant"`
	Status      ApplicationStatus  `bson:"status" json:"status"`
	AppliedAt   time.Time          `bson:"appliedAt" json:"appliedAt"`
	CoverLetter string             `bson:"coverLetter,omitempty" json:"coverLetter,omitempty"`
}

func (j *Job) EnsureLists() {
	if j.Applications == nil {
		j.Applications = []Application{}
	}
	if j.Requirements == nil {
		j.Requirements = []string{}
	}
	if j.Responsibilities == nil {
		j.Responsibilities = []string{}
	}
	if j.Skills == nil {
		j.Skills = []string{}
	}
}
