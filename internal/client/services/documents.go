package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/filex"
	"github.com/dmitrijs2005/applytrack/internal/logging"
)

// ErrNoServerID is returned when a document addressed by its local key has
// not been given an id by the server, so no endpoint can reach it.
var ErrNoServerID = errors.New("document has no server id yet, run 'docs' to reload")

// DocumentsAPI is the part of the backend contract the document workflow uses.
type DocumentsAPI interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	UploadDocument(ctx context.Context, f client.FileUpload, onProgress client.ProgressFunc) (*models.UploadResponse, error)
	DownloadDocument(ctx context.Context, id string) (*models.Download, error)
	DeleteDocument(ctx context.Context, id string) (*models.Profile, error)
}

// UploadResult describes how an upload was reconciled with the list.
type UploadResult struct {
	Documents []models.Document
	// Attempts is the number of poll reads made, the final reconciliation
	// read excluded.
	Attempts int
	// Settled is false when the budget ran out before the list reflected
	// the upload.
	Settled bool
}

// Documents holds the locally rendered document list and runs the upload
// workflow against it.
type Documents struct {
	api    DocumentsAPI
	log    logging.Logger
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	seq     uint64 // last ticket handed out
	written uint64 // ticket of the last list write
	loaded  bool
	docs    []models.Document
}

func NewDocuments(api DocumentsAPI, log logging.Logger, policy RetryPolicy) *Documents {
	if log == nil {
		log = logging.Discard()
	}
	return &Documents{api: api, log: log, policy: policy.withDefaults(), sleep: sleepCtx}
}

// List returns a copy of the current list.
func (d *Documents) List() []models.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.docs)
}

func (d *Documents) ticket() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// store replaces the list unless a newer operation already wrote it.
func (d *Documents) store(ticket uint64, docs []models.Document) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ticket < d.written {
		return false
	}
	d.written = ticket
	d.loaded = true
	d.docs = slices.Clone(docs)
	models.KeyDocuments(d.docs)
	return true
}

// Reload fetches the list from the profile endpoint.
func (d *Documents) Reload(ctx context.Context) ([]models.Document, error) {
	t := d.ticket()
	p, err := d.api.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if !d.store(t, p.Documents) {
		d.log.Debug(ctx, "discarding stale document list")
	}
	return d.List(), nil
}

// Upload sends f and then polls the profile until the new document is
// visible or the retry budget is spent. Only the upload call itself can
// fail the workflow; an unsettled poll still yields a list.
func (d *Documents) Upload(ctx context.Context, f client.FileUpload, onProgress client.ProgressFunc) (*UploadResult, error) {
	d.mu.Lock()
	loaded := d.loaded
	d.mu.Unlock()
	if !loaded {
		if _, err := d.Reload(ctx); err != nil {
			d.log.Warn(ctx, "baseline document list unavailable", "error", err)
		}
	}

	t := d.ticket()
	snapshot := d.List()

	res, err := d.api.UploadDocument(ctx, f, onProgress)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	want := uploadedMeta(res, f)
	d.log.Info(ctx, "document uploaded", "name", want.Name, "id", want.ID, "size", want.Size)

	result, err := d.poll(ctx, snapshot, want)
	if !d.store(t, result.Documents) {
		d.log.Debug(ctx, "discarding stale poll result")
		result.Documents = d.List()
	}
	return result, err
}

// uploadedMeta prefers the server's document, then the newest entry of the
// returned profile, then what is known locally.
func uploadedMeta(res *models.UploadResponse, f client.FileUpload) UploadedMeta {
	var doc *models.Document
	switch {
	case res == nil:
	case res.Doc != nil:
		doc = res.Doc
	case res.Profile != nil && len(res.Profile.Documents) > 0:
		doc = &res.Profile.Documents[len(res.Profile.Documents)-1]
	}

	if doc == nil || (doc.ServerID() == "" && doc.Filename == "" && doc.OriginalName == "") {
		return UploadedMeta{Name: f.Name, Filename: f.Name, Size: int64(len(f.Content))}
	}

	name := doc.OriginalName
	if name == "" {
		name = doc.Filename
	}
	return UploadedMeta{ID: doc.ServerID(), Name: name, Filename: doc.Filename, Size: doc.Size}
}

func (d *Documents) poll(ctx context.Context, snapshot []models.Document, want UploadedMeta) (*UploadResult, error) {
	b := d.policy.backoff()
	var last []models.Document
	haveLast := false
	attempts := 0

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		attempts = attempt
		var docs []models.Document
		p, err := d.api.GetProfile(ctx)
		if err != nil {
			d.log.Debug(ctx, "poll read failed", "attempt", attempt, "error", err)
		} else {
			docs = p.Documents
			last, haveLast = docs, true
		}

		if d.policy.Accept(snapshot, docs, want) {
			return &UploadResult{Documents: docs, Attempts: attempt, Settled: true}, nil
		}

		delay, stop := b.Next()
		if stop {
			break
		}
		if err := d.sleep(ctx, delay); err != nil {
			return &UploadResult{Documents: fallback(last, haveLast, snapshot), Attempts: attempt}, err
		}
	}

	result := &UploadResult{Attempts: attempts}
	p, err := d.api.GetProfile(ctx)
	if err != nil {
		d.log.Warn(ctx, "final document read failed", "error", err)
		result.Documents = fallback(last, haveLast, snapshot)
		return result, nil
	}
	result.Documents = p.Documents
	result.Settled = d.policy.Accept(snapshot, p.Documents, want)
	return result, nil
}

func fallback(last []models.Document, haveLast bool, snapshot []models.Document) []models.Document {
	if haveLast {
		return last
	}
	return snapshot
}

// Download writes document id into dir and returns the path. The name comes
// from the response header, then the local title, then "document".
func (d *Documents) Download(ctx context.Context, id, dir string) (string, error) {
	doc, known := d.find(id)
	serverID, err := resolveID(id, doc, known)
	if err != nil {
		return "", err
	}
	dl, err := d.api.DownloadDocument(ctx, serverID)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", id, err)
	}

	name := dl.Filename
	if name == "" && known {
		name = doc.Title()
	}

	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	return filex.WriteUnique(dir, filex.SanitizeName(name, "document"), dl.Body)
}

func (d *Documents) find(id string) (models.Document, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, doc := range d.docs {
		if doc.ServerID() == id || doc.Key() == id {
			return doc, true
		}
	}
	return models.Document{}, false
}

// resolveID maps a key shown in the list to the id the server knows. Keys
// not in the list are passed through unchanged.
func resolveID(key string, doc models.Document, known bool) (string, error) {
	if !known {
		return key, nil
	}
	if id := doc.ServerID(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%s: %w", doc.Title(), ErrNoServerID)
}

// Delete removes document id and reloads the list.
func (d *Documents) Delete(ctx context.Context, id string) ([]models.Document, error) {
	doc, known := d.find(id)
	serverID, err := resolveID(id, doc, known)
	if err != nil {
		return nil, err
	}
	if _, err := d.api.DeleteDocument(ctx, serverID); err != nil {
		return nil, fmt.Errorf("delete %s: %w", id, err)
	}
	return d.Reload(ctx)
}

// Filter selects documents of kind (empty or "all" for any) whose title or
// mime type contains query, case-insensitively.
func (d *Documents) Filter(kind models.DocumentType, query string) []models.Document {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.Document
	for _, doc := range d.List() {
		if kind != "" && kind != "all" && doc.Kind() != kind {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(doc.Title()), q) &&
			!strings.Contains(strings.ToLower(doc.MimeType), q) {
			continue
		}
		out = append(out, doc)
	}
	return out
}
