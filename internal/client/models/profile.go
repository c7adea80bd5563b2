package models

import (
	"errors"
	"slices"
	"strings"
)

var ErrUnknownSkillCategory = errors.New("unknown skill category")

// SkillCategory names one of the three ordered skill lists.
type SkillCategory string

const (
	SkillsTechnical SkillCategory = "technical"
	SkillsSoft      SkillCategory = "soft"
	SkillsLanguages SkillCategory = "languages"
)

type Skills struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
	Languages []string `json:"languages"`
}

func (s *Skills) list(c SkillCategory) (*[]string, error) {
	switch c {
	case SkillsTechnical:
		return &s.Technical, nil
	case SkillsSoft:
		return &s.Soft, nil
	case SkillsLanguages:
		return &s.Languages, nil
	default:
		return nil, ErrUnknownSkillCategory
	}
}

// Get returns a copy of the category's list.
func (s *Skills) Get(c SkillCategory) ([]string, error) {
	l, err := s.list(c)
	if err != nil {
		return nil, err
	}
	return slices.Clone(*l), nil
}

// Add prepends value to the category unless it is already present.
// It reports whether the list changed.
func (s *Skills) Add(c SkillCategory, value string) (bool, error) {
	l, err := s.list(c)
	if err != nil {
		return false, err
	}
	value = strings.TrimSpace(value)
	if value == "" || slices.Contains(*l, value) {
		return false, nil
	}
	*l = append([]string{value}, *l...)
	return true, nil
}

// Remove drops every occurrence of value from the category.
func (s *Skills) Remove(c SkillCategory, value string) (bool, error) {
	l, err := s.list(c)
	if err != nil {
		return false, err
	}
	before := len(*l)
	*l = slices.DeleteFunc(*l, func(v string) bool { return v == value })
	return len(*l) != before, nil
}

type Experience struct {
	Ref
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

func (e *Experience) ref() *Ref { return &e.Ref }

// IsEmpty treats an entry with only whitespace text as empty. The Current
// flag alone does not make an entry worth saving.
func (e Experience) IsEmpty() bool {
	return blank(e.Company, e.Position, e.StartDate, e.EndDate, e.Description)
}

type Education struct {
	Ref
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	GPA          string `json:"gpa"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

func (e *Education) ref() *Ref { return &e.Ref }

func (e Education) IsEmpty() bool {
	return blank(e.Institution, e.Degree, e.FieldOfStudy, e.GPA, e.StartDate, e.EndDate)
}

type Certificate struct {
	Ref
	Name         string `json:"name"`
	IssuingOrg   string `json:"issuingOrg"`
	IssueDate    string `json:"issueDate"`
	ExpiryDate   string `json:"expiryDate"`
	CredentialID string `json:"credentialId"`
}

func (c *Certificate) ref() *Ref { return &c.Ref }

func (c Certificate) IsEmpty() bool {
	return blank(c.Name, c.IssuingOrg, c.IssueDate, c.ExpiryDate, c.CredentialID)
}

// Profile is the user's editable profile. Documents are managed through the
// upload and delete endpoints and are not part of the update payload.
type Profile struct {
	ProfessionalTitle string `json:"professionalTitle"`
	Location          string `json:"location"`
	Summary           string `json:"summary"`
	Phone             string `json:"phone"`
	Website           string `json:"website"`
	LinkedIn          string `json:"linkedin"`
	GitHub            string `json:"github"`
	Twitter           string `json:"twitter"`

	Skills       Skills        `json:"skills"`
	Experiences  []Experience  `json:"experiences"`
	Educations   []Education   `json:"educations"`
	Certificates []Certificate `json:"certificates"`
	Documents    []Document    `json:"documents"`
}

// AssignLocalIDs attaches transient ids to sub-documents that lack a server
// id (or repeat one), keeping keys unique within each collection.
func (p *Profile) AssignLocalIDs() {
	if p == nil {
		return
	}
	assignLocalIDs(p.Experiences, "exp-")
	assignLocalIDs(p.Educations, "edu-")
	assignLocalIDs(p.Certificates, "cert-")
	KeyDocuments(p.Documents)
}

// Clone returns a copy whose lists can be edited without affecting p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = Skills{
		Technical: slices.Clone(p.Skills.Technical),
		Soft:      slices.Clone(p.Skills.Soft),
		Languages: slices.Clone(p.Skills.Languages),
	}
	c.Experiences = slices.Clone(p.Experiences)
	c.Educations = slices.Clone(p.Educations)
	c.Certificates = slices.Clone(p.Certificates)
	c.Documents = slices.Clone(p.Documents)
	return &c
}

// RemoveExperience deletes the entry addressed by key.
func (p *Profile) RemoveExperience(key string) bool {
	i := indexByKey(p.Experiences, key)
	if i < 0 {
		return false
	}
	p.Experiences = slices.Delete(p.Experiences, i, i+1)
	return true
}

func (p *Profile) RemoveEducation(key string) bool {
	i := indexByKey(p.Educations, key)
	if i < 0 {
		return false
	}
	p.Educations = slices.Delete(p.Educations, i, i+1)
	return true
}

func (p *Profile) RemoveCertificate(key string) bool {
	i := indexByKey(p.Certificates, key)
	if i < 0 {
		return false
	}
	p.Certificates = slices.Delete(p.Certificates, i, i+1)
	return true
}

// ProfileUpdate is the body of PUT /profile.
type ProfileUpdate struct {
	ProfessionalTitle string        `json:"professionalTitle"`
	Location          string        `json:"location"`
	Summary           string        `json:"summary"`
	Phone             string        `json:"phone"`
	Website           string        `json:"website"`
	LinkedIn          string        `json:"linkedin"`
	GitHub            string        `json:"github"`
	Twitter           string        `json:"twitter"`
	Skills            Skills        `json:"skills"`
	Experiences       []Experience  `json:"experiences"`
	Educations        []Education   `json:"educations"`
	Certificates      []Certificate `json:"certificates"`
}

// Update builds the save payload: identifiers are stripped (the server
// reassigns them) and empty sub-documents are dropped. Nil lists are sent
// as empty arrays.
func (p *Profile) Update() ProfileUpdate {
	return ProfileUpdate{
		ProfessionalTitle: p.ProfessionalTitle,
		Location:          p.Location,
		Summary:           p.Summary,
		Phone:             p.Phone,
		Website:           p.Website,
		LinkedIn:          p.LinkedIn,
		GitHub:            p.GitHub,
		Twitter:           p.Twitter,
		Skills: Skills{
			Technical: nonNil(p.Skills.Technical),
			Soft:      nonNil(p.Skills.Soft),
			Languages: nonNil(p.Skills.Languages),
		},
		Experiences:  stripRefs(p.Experiences, Experience.IsEmpty),
		Educations:   stripRefs(p.Educations, Education.IsEmpty),
		Certificates: stripRefs(p.Certificates, Certificate.IsEmpty),
	}
}

func stripRefs[T any, P interface {
	*T
	keyed
}](items []T, empty func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if empty(it) {
			continue
		}
		*P(&it).ref() = Ref{}
		out = append(out, it)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
