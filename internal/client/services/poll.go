package services

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultPollAttempts = 6
	DefaultPollDelay    = 300 * time.Millisecond
)

// UploadedMeta identifies a just-uploaded document in later list reads.
// ID is set when the server returned one.
type UploadedMeta struct {
	ID       string
	Name     string
	Filename string
	Size     int64
}

// AcceptFunc decides whether a fetched list reflects the upload.
type AcceptFunc func(before, after []models.Document, want UploadedMeta) bool

// RetryPolicy bounds the consistency poll that follows an upload. Backoff
// yields the delay after each unsettled attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func() retry.Backoff
	Accept      AcceptFunc
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultPollAttempts,
		Backoff:     ConstantBackoff(DefaultPollDelay),
		Accept:      Settled,
	}
}

// ConstantBackoff waits d between attempts.
func ConstantBackoff(d time.Duration) func() retry.Backoff {
	return func() retry.Backoff { return retry.NewConstant(d) }
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = def.Backoff
	}
	if p.Accept == nil {
		p.Accept = def.Accept
	}
	return p
}

func (p RetryPolicy) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(p.MaxAttempts), p.Backoff())
}

// Settled accepts a list that grew past the snapshot or that contains the
// uploaded document.
func Settled(before, after []models.Document, want UploadedMeta) bool {
	if len(after) > len(before) {
		return true
	}
	for _, d := range after {
		if Matches(d, want) {
			return true
		}
	}
	return false
}

// Matches compares by server id when both sides have one. Otherwise it falls
// back to the name (equal or contained) and, when known, the size.
func Matches(d models.Document, want UploadedMeta) bool {
	if id := d.ServerID(); want.ID != "" && id != "" {
		return id == want.ID
	}

	name := d.OriginalName
	if name == "" {
		name = d.Filename
	}
	if name == "" {
		return false
	}
	if want.Size > 0 && d.Size != want.Size {
		return false
	}

	for _, w := range []string{want.Name, want.Filename} {
		if w != "" && (name == w || strings.Contains(name, w)) {
			return true
		}
	}
	return false
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
