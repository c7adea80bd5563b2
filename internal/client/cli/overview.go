package cli

import (
	"context"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/client/services"
	"golang.org/x/sync/errgroup"
)

// Overview loads the profile, the documents and the jobs concurrently and
// prints a summary. Any failure cancels the other loads.
func (a *App) Overview(ctx context.Context) error {
	var (
		profile *models.Profile
		docs    []models.Document
		jobs    []models.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = a.Profiles.Load(gctx)
		return err
	})
	g.Go(func() (err error) {
		docs, err = a.Documents.Reload(gctx)
		return err
	})
	g.Go(func() (err error) {
		jobs, err = a.Deps.Jobs.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if u := a.Session.User(); u != nil {
		a.println(u.DisplayName())
	}
	if profile.ProfessionalTitle != "" {
		a.println(profile.ProfessionalTitle)
	}

	kinds := map[models.DocumentType]int{}
	for _, d := range docs {
		kinds[d.Kind()]++
	}
	a.printf("Documents: %d (resumes %d, cover letters %d, other %d)\n",
		len(docs), kinds[models.DocTypeResume], kinds[models.DocTypeCoverLetter], kinds[models.DocTypeOther])

	skills := len(profile.Skills.Technical) + len(profile.Skills.Soft) + len(profile.Skills.Languages)
	a.printf("Skills: %d, experience entries: %d\n", skills, len(profile.Experiences))

	a.printf("Jobs: %d\n", len(jobs))
	if len(jobs) > 0 {
		a.println(statsLine(services.Stats(jobs)))
	}
	return nil
}
