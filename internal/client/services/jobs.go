package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/logging"
	"github.com/dmitrijs2005/applytrack/internal/validate"
)

type JobsAPI interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CreateJob(ctx context.Context, in models.Job) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, in models.Job) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// Jobs manages the tracked applications and keeps the last list in memory.
type Jobs struct {
	api JobsAPI
	log logging.Logger

	mu   sync.Mutex
	jobs []models.Job
}

func NewJobs(api JobsAPI, log logging.Logger) *Jobs {
	if log == nil {
		log = logging.Discard()
	}
	return &Jobs{api: api, log: log}
}

// ValidateJob checks a job before it is sent. An empty status defaults to
// saved.
func ValidateJob(j *models.Job) error {
	if j.Status == "" {
		j.Status = models.JobSaved
	}
	statuses := make([]string, 0, len(models.JobStatuses))
	for _, s := range models.JobStatuses {
		statuses = append(statuses, string(s))
	}
	return validate.New().
		Required("company", j.Company).
		Required("title", j.Title).
		MaxLen("company", j.Company, 200).
		MaxLen("title", j.Title, 200).
		OneOf("status", string(j.Status), statuses...).
		Range("fit", j.Fit, 0, 100).
		Range("progress", j.Progress, 0, 100).
		Err()
}

func (s *Jobs) Cached() []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.jobs)
}

func (s *Jobs) List(ctx context.Context) ([]models.Job, error) {
	jobs, err := s.api.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	s.mu.Lock()
	s.jobs = slices.Clone(jobs)
	s.mu.Unlock()
	return jobs, nil
}

func (s *Jobs) Get(ctx context.Context, id string) (*models.Job, error) {
	j, err := s.api.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// Create validates j, sends it, and puts the result at the head of the list.
func (s *Jobs) Create(ctx context.Context, j models.Job) (*models.Job, error) {
	if err := ValidateJob(&j); err != nil {
		return nil, err
	}
	created, err := s.api.CreateJob(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.mu.Lock()
	s.jobs = append([]models.Job{*created}, s.jobs...)
	s.mu.Unlock()
	s.log.Info(ctx, "job created", "id", created.ID, "company", created.Company)
	return created, nil
}

func (s *Jobs) Update(ctx context.Context, id string, j models.Job) (*models.Job, error) {
	if err := ValidateJob(&j); err != nil {
		return nil, err
	}
	updated, err := s.api.UpdateJob(ctx, id, j)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	s.mu.Lock()
	if i := slices.IndexFunc(s.jobs, func(x models.Job) bool { return x.ID == id }); i >= 0 {
		s.jobs[i] = *updated
	}
	s.mu.Unlock()
	return updated, nil
}

// SetStatus moves a job to another pipeline stage.
func (s *Jobs) SetStatus(ctx context.Context, id string, status models.JobStatus) (*models.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Status = status
	return s.Update(ctx, id, *j)
}

func (s *Jobs) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	s.mu.Lock()
	s.jobs = slices.DeleteFunc(s.jobs, func(x models.Job) bool { return x.ID == id })
	s.mu.Unlock()
	return nil
}

// Stats counts jobs per status.
func Stats(jobs []models.Job) map[models.JobStatus]int {
	out := make(map[models.JobStatus]int, len(models.JobStatuses))
	for _, j := range jobs {
		out[j.Status]++
	}
	return out
}
