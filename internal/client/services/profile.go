package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/logging"
)

type ProfileAPI interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.Profile, error)
}

// Refresher resynchronizes the signed-in user after a profile change.
type Refresher interface {
	Refresh(ctx context.Context) (*models.User, error)
}

// Profiles loads and saves the user's profile.
type Profiles struct {
	api     ProfileAPI
	session Refresher
	log     logging.Logger

	mu      sync.Mutex
	current *models.Profile
}

func NewProfiles(api ProfileAPI, session Refresher, log logging.Logger) *Profiles {
	if log == nil {
		log = logging.Discard()
	}
	return &Profiles{api: api, session: session, log: log}
}

// Current returns a copy of the last loaded profile, nil before Load.
func (p *Profiles) Current() *models.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone()
}

func (p *Profiles) set(pr *models.Profile) *models.Profile {
	pr.AssignLocalIDs()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = pr
	return pr.Clone()
}

func (p *Profiles) Load(ctx context.Context) (*models.Profile, error) {
	pr, err := p.api.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p.set(pr), nil
}

// Save sends pr without local ids or empty entries and adopts the server's
// canonical copy. The session user is refreshed afterwards; a refresh
// failure is logged, the save still counts.
func (p *Profiles) Save(ctx context.Context, pr *models.Profile) (*models.Profile, error) {
	saved, err := p.api.UpdateProfile(ctx, pr.Update())
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	out := p.set(saved)

	if p.session != nil {
		if _, err := p.session.Refresh(ctx); err != nil {
			p.log.Warn(ctx, "refresh session after profile save", "error", err)
		}
	}
	return out, nil
}

// Edit applies fn to a copy of the current profile (loading it first if
// needed) and saves the result when fn reports a change.
func (p *Profiles) Edit(ctx context.Context, fn func(*models.Profile) (bool, error)) (*models.Profile, error) {
	pr := p.Current()
	if pr == nil {
		var err error
		if pr, err = p.Load(ctx); err != nil {
			return nil, err
		}
	}

	changed, err := fn(pr)
	if err != nil {
		return nil, err
	}
	if !changed {
		return pr, nil
	}
	return p.Save(ctx, pr)
}

// AddSkill prepends value to the category unless it is already listed.
func (p *Profiles) AddSkill(ctx context.Context, c models.SkillCategory, value string) (*models.Profile, error) {
	return p.Edit(ctx, func(pr *models.Profile) (bool, error) {
		return pr.Skills.Add(c, value)
	})
}

func (p *Profiles) RemoveSkill(ctx context.Context, c models.SkillCategory, value string) (*models.Profile, error) {
	return p.Edit(ctx, func(pr *models.Profile) (bool, error) {
		return pr.Skills.Remove(c, value)
	})
}
