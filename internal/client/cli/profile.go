package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
)

const (
	usageProfile = "profile [edit | rm experience|education|certificate <id>]"
	usageSkill   = "skill add|rm <technical|soft|languages> <value>"
)

var errNoSuchEntry = errors.New("no such entry")

// Profile shows the profile, edits its headline fields or removes a
// sub-document.
func (a *App) Profile(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		p, err := a.Profiles.Load(ctx)
		if err != nil {
			return err
		}
		a.printProfile(p)
		return nil
	case args[0] == "edit" && len(args) == 1:
		return a.editProfile(ctx)
	case args[0] == "rm" && len(args) == 3:
		return a.removeEntry(ctx, args[1], args[2])
	}
	return errUsage(usageProfile)
}

func (a *App) printProfile(p *models.Profile) {
	if u := a.Session.User(); u != nil {
		a.println(u.DisplayName())
	}
	field := func(name, value string) {
		if value != "" {
			a.printf("  %-10s %s\n", name+":", value)
		}
	}
	field("title", p.ProfessionalTitle)
	field("location", p.Location)
	field("summary", p.Summary)
	field("phone", p.Phone)
	field("website", p.Website)
	field("linkedin", p.LinkedIn)
	field("github", p.GitHub)
	field("twitter", p.Twitter)

	a.println("Skills")
	a.printf("  technical: %s\n", strings.Join(p.Skills.Technical, ", "))
	a.printf("  soft:      %s\n", strings.Join(p.Skills.Soft, ", "))
	a.printf("  languages: %s\n", strings.Join(p.Skills.Languages, ", "))

	if len(p.Experiences) > 0 {
		a.println("Experience")
		for _, e := range p.Experiences {
			a.printf("  [%s] %s at %s %s\n", e.Key(), e.Position, e.Company, period(e.StartDate, e.EndDate, e.Current))
		}
	}
	if len(p.Educations) > 0 {
		a.println("Education")
		for _, e := range p.Educations {
			a.printf("  [%s] %s, %s %s\n", e.Key(), e.Degree, e.Institution, period(e.StartDate, e.EndDate, false))
		}
	}
	if len(p.Certificates) > 0 {
		a.println("Certificates")
		for _, c := range p.Certificates {
			a.printf("  [%s] %s (%s)\n", c.Key(), c.Name, c.IssuingOrg)
		}
	}
	a.printf("Documents: %d\n", len(p.Documents))
}

func period(start, end string, current bool) string {
	if current {
		end = "present"
	}
	if start == "" && end == "" {
		return ""
	}
	return fmt.Sprintf("(%s - %s)", start, end)
}

// editProfile prompts for the headline fields. An empty answer keeps the
// current value, a single "-" clears it.
func (a *App) editProfile(ctx context.Context) error {
	p := a.Profiles.Current()
	if p == nil {
		var err error
		if p, err = a.Profiles.Load(ctx); err != nil {
			return err
		}
	}

	fields := []struct {
		label string
		value *string
	}{
		{"Professional title", &p.ProfessionalTitle},
		{"Location", &p.Location},
		{"Summary", &p.Summary},
		{"Phone", &p.Phone},
		{"Website", &p.Website},
		{"LinkedIn", &p.LinkedIn},
		{"GitHub", &p.GitHub},
		{"Twitter", &p.Twitter},
	}
	for _, f := range fields {
		answer, err := a.prompt(fmt.Sprintf("%s [%s]", f.label, *f.value))
		if err != nil {
			return err
		}
		switch answer {
		case "":
		case "-":
			*f.value = ""
		default:
			*f.value = answer
		}
	}

	if _, err := a.Profiles.Save(ctx, p); err != nil {
		return err
	}
	a.println("Profile saved.")
	return nil
}

func (a *App) removeEntry(ctx context.Context, kind, key string) error {
	var remove func(*models.Profile) bool
	switch kind {
	case "experience", "exp":
		remove = func(p *models.Profile) bool { return p.RemoveExperience(key) }
	case "education", "edu":
		remove = func(p *models.Profile) bool { return p.RemoveEducation(key) }
	case "certificate", "cert":
		remove = func(p *models.Profile) bool { return p.RemoveCertificate(key) }
	default:
		return errUsage(usageProfile)
	}

	_, err := a.Profiles.Edit(ctx, func(p *models.Profile) (bool, error) {
		if !remove(p) {
			return false, fmt.Errorf("%s %s: %w", kind, key, errNoSuchEntry)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	a.println("Removed", kind, key+".")
	return nil
}

// Skill adds or removes a skill.
func (a *App) Skill(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errUsage(usageSkill)
	}
	category := models.SkillCategory(strings.ToLower(args[1]))
	value := strings.Join(args[2:], " ")

	var (
		p   *models.Profile
		err error
	)
	switch args[0] {
	case "add":
		p, err = a.Profiles.AddSkill(ctx, category, value)
	case "rm", "remove":
		p, err = a.Profiles.RemoveSkill(ctx, category, value)
	default:
		return errUsage(usageSkill)
	}
	if err != nil {
		return err
	}

	skills, _ := p.Skills.Get(category)
	a.printf("%s: %s\n", category, strings.Join(skills, ", "))
	return nil
}
