package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/applytrack/internal/client/apitest"
	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfiles(t *testing.T, opts ...func(*apitest.State)) (*Profiles, *Session, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t, opts...)
	st := setupStorage(t)
	c := client.NewHTTPClient(srv.BaseURL(), st)
	s := NewSession(c, st, nil)
	_, err := s.Login(context.Background(), models.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	return NewProfiles(c, s, nil), s, srv
}

func TestProfiles_LoadAssignsLocalIDs(t *testing.T) {
	p, _, _ := newProfiles(t, func(s *apitest.State) {
		s.Profile.Experiences = []models.Experience{{Company: "A"}, {Ref: models.Ref{ID: "e1"}, Company: "B"}}
	})

	pr, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, pr.Experiences[0].LocalID)
	assert.Equal(t, "e1", pr.Experiences[1].Key())
	assert.NotEqual(t, pr.Experiences[0].Key(), pr.Experiences[1].Key())
}

func TestProfiles_SaveRefreshesSession(t *testing.T) {
	p, s, srv := newProfiles(t)
	ctx := context.Background()

	pr, err := p.Load(ctx)
	require.NoError(t, err)
	pr.ProfessionalTitle = "Staff Engineer"
	pr.Experiences = append(pr.Experiences, models.Experience{Company: "Acme"}, models.Experience{})

	saved, err := p.Save(ctx, pr)
	require.NoError(t, err)

	assert.Equal(t, "Staff Engineer", saved.ProfessionalTitle)
	require.Len(t, saved.Experiences, 1, "empty entry dropped")
	assert.NotEmpty(t, saved.Experiences[0].ID, "server assigned the id")
	assert.Equal(t, 1, srv.Calls(apitest.RouteMe), "session refreshed once")

	require.NotNil(t, s.User().Profile)
	assert.Equal(t, "Staff Engineer", s.User().Profile.ProfessionalTitle)
}

func TestProfiles_AddAndRemoveSkill(t *testing.T) {
	p, _, srv := newProfiles(t, func(s *apitest.State) {
		s.Profile.Skills.Technical = []string{"Go"}
	})
	ctx := context.Background()

	pr, err := p.AddSkill(ctx, models.SkillsTechnical, "Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes", "Go"}, pr.Skills.Technical)

	_, err = p.AddSkill(ctx, models.SkillsTechnical, "Go")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Calls(apitest.RouteUpdateProfile), "duplicate is not saved")

	pr, err = p.RemoveSkill(ctx, models.SkillsTechnical, "Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes"}, pr.Skills.Technical)

	_, err = p.AddSkill(ctx, "hobbies", "chess")
	assert.ErrorIs(t, err, models.ErrUnknownSkillCategory)
}

func TestProfiles_SaveFailureKeepsCurrent(t *testing.T) {
	p, s, _ := newProfiles(t)
	ctx := context.Background()
	_, err := p.Load(ctx)
	require.NoError(t, err)

	s.Logout(ctx)

	edited := p.Current()
	edited.Summary = "changed"
	_, err = p.Save(ctx, edited)

	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, p.Current().Summary)
}
