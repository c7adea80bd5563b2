package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake jobs API ----

type fakeJobsAPI struct {
	jobs []models.Job

	CreateCalls int
	LastCreate  models.Job
	LastUpdate  models.Job
	DeleteErr   error
}

func (f *fakeJobsAPI) ListJobs(context.Context) ([]models.Job, error) {
	return append([]models.Job(nil), f.jobs...), nil
}

func (f *fakeJobsAPI) GetJob(_ context.Context, id string) (*models.Job, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, assert.AnError
}

func (f *fakeJobsAPI) CreateJob(_ context.Context, in models.Job) (*models.Job, error) {
	f.CreateCalls++
	f.LastCreate = in
	in.ID = "new"
	f.jobs = append(f.jobs, in)
	return &in, nil
}

func (f *fakeJobsAPI) UpdateJob(_ context.Context, id string, in models.Job) (*models.Job, error) {
	f.LastUpdate = in
	in.ID = id
	return &in, nil
}

func (f *fakeJobsAPI) DeleteJob(context.Context, string) error { return f.DeleteErr }

// ---- TESTS ----

func TestJobs_CreateValidatesBeforeNetwork(t *testing.T) {
	api := &fakeJobsAPI{}
	s := NewJobs(api, nil)

	_, err := s.Create(context.Background(), models.Job{Company: "", Title: "SRE", Fit: 150, Status: "ghosted"})

	require.ErrorIs(t, err, validate.ErrInvalid)
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.Zero(t, api.CreateCalls)
}

func TestJobs_CreatePrependsAndDefaultsStatus(t *testing.T) {
	api := &fakeJobsAPI{jobs: []models.Job{{ID: "j1", Company: "Old", Title: "Dev", Status: models.JobApplied}}}
	s := NewJobs(api, nil)
	ctx := context.Background()
	_, err := s.List(ctx)
	require.NoError(t, err)

	created, err := s.Create(ctx, models.Job{Company: "Acme", Title: "SRE", Fit: 80})
	require.NoError(t, err)

	assert.Equal(t, models.JobSaved, api.LastCreate.Status)
	assert.Equal(t, "new", created.ID)
	cached := s.Cached()
	require.Len(t, cached, 2)
	assert.Equal(t, "new", cached[0].ID)
}

func TestJobs_SetStatusAndDelete(t *testing.T) {
	api := &fakeJobsAPI{jobs: []models.Job{{ID: "j1", Company: "Acme", Title: "SRE", Status: models.JobSaved}}}
	s := NewJobs(api, nil)
	ctx := context.Background()
	_, err := s.List(ctx)
	require.NoError(t, err)

	j, err := s.SetStatus(ctx, "j1", models.JobInterview)
	require.NoError(t, err)
	assert.Equal(t, models.JobInterview, j.Status)
	assert.Equal(t, models.JobInterview, s.Cached()[0].Status)

	require.NoError(t, s.Delete(ctx, "j1"))
	assert.Empty(t, s.Cached())

	api.DeleteErr = assert.AnError
	assert.ErrorIs(t, s.Delete(ctx, "j1"), assert.AnError)
}

func TestStats(t *testing.T) {
	got := Stats([]models.Job{
		{Status: models.JobApplied}, {Status: models.JobApplied}, {Status: models.JobOffer},
	})
	assert.Equal(t, 2, got[models.JobApplied])
	assert.Equal(t, 1, got[models.JobOffer])
	assert.Zero(t, got[models.JobRejected])
}
