package memstore

import (
	"context"
	"sort"
	"time"

	"networked/models"
	"networked/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type jobs struct{ *db }

func (s *jobs) Create(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.ID.IsZero() {
		j.ID = primitive.NewObjectID()
	}
	j.EnsureLists()
	s.jobs[j.ID] = clone(j)
	return nil
}

func (s *jobs) FindByID(_ context.Context, id primitive.ObjectID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(j), nil
}

func matchJob(j *models.Job, f repository.JobFilter) bool {
	if f.ActiveOnly && !j.IsActive {
		return false
	}
	if f.Company != nil && j.Company != *f.Company {
		return false
	}
	if f.Type != "" && j.Type != f.Type {
		return false
	}
	if f.RemoteOnly && !j.Remote {
		return false
	}
	if f.Location != "" && !containsFold(j.Location, f.Location) {
		return false
	}
	if f.Search == "" {
		return true
	}
	if containsFold(j.Title, f.Search) || containsFold(j.Description, f.Search) {
		return true
	}
	for _, sk := range j.Skills {
		if containsFold(sk, f.Search) {
			return true
		}
	}
	return false
}

func (s *jobs) Search(_ context.Context, f repository.JobFilter) ([]models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if matchJob(j, f) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return before(out[k].CreatedAt, out[i].CreatedAt, out[k].ID, out[i].ID)
	})
	return cloneAll(out), nil
}

func (s *jobs) CountActive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, j := range s.jobs {
		if j.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *jobs) CountPendingApplications(_ context.Context, company primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, j := range s.jobs {
		if j.Company == company {
			n += int64(j.PendingApplications())
		}
	}
	return n, nil
}

func (s *jobs) AddApplication(_ context.Context, jobID primitive.ObjectID, a models.Application) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || !j.IsActive || j.ApplicationBy(a.Applicant) != nil {
		return false, nil
	}
	j.Applications = append(j.Applications, a)
	j.UpdatedAt = time.Now()
	return true, nil
}

func (s *jobs) SetApplicationStatus(_ context.Context, jobID, company, applicant primitive.ObjectID, from, to models.ApplicationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Company != company {
		return false, nil
	}
	a := j.ApplicationBy(applicant)
	if a == nil || a.Status != from {
		return false, nil
	}
	a.Status = to
	j.UpdatedAt = time.Now()
	return true, nil
}

func (s *jobs) Close(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || !j.IsActive {
		return false, nil
	}
	j.IsActive = false
	j.UpdatedAt = time.Now()
	return true, nil
}

func (s *jobs) CloseByCompany(_ context.Context, company primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.Company == company && j.IsActive {
			j.IsActive = false
			j.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (s *jobs) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.IsActive && j.Deadline != nil && j.Deadline.Before(now) {
			j.IsActive = false
			j.UpdatedAt = now
			n++
		}
	}
	return n, nil
}
