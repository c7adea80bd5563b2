package models

import (
	"strings"
	"time"
)

// JobStatus is the pipeline stage of an application.
type JobStatus string

const (
	JobSaved     JobStatus = "saved"
	JobApplied   JobStatus = "applied"
	JobInterview JobStatus = "interview"
	JobOffer     JobStatus = "offer"
	JobRejected  JobStatus = "rejected"
)

var JobStatuses = []JobStatus{JobSaved, JobApplied, JobInterview, JobOffer, JobRejected}

func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range JobStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Job is one tracked application.
type Job struct {
	ID           string     `json:"_id,omitempty"`
	Company      string     `json:"company"`
	Title        string     `json:"title"`
	Status       JobStatus  `json:"status"`
	Location     string     `json:"location,omitempty"`
	URL          string     `json:"url,omitempty"`
	Fit          int        `json:"fit"`
	Progress     int        `json:"progress"`
	NextAction   string     `json:"nextAction,omitempty"`
	HighPriority bool       `json:"highPriority"`
	AppliedAt    *time.Time `json:"appliedAt,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Date is the applied date, or the creation date when not applied yet.
func (j Job) Date() time.Time {
	switch {
	case j.AppliedAt != nil:
		return *j.AppliedAt
	case j.CreatedAt != nil:
		return *j.CreatedAt
	default:
		return time.Time{}
	}
}
