package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/common"
	"github.com/dmitrijs2005/applytrack/internal/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultUploadTimeout  = 60 * time.Second
)

// HTTPClient implements Client over the backend's REST interface.
type HTTPClient struct {
	baseURL        string
	http           *http.Client
	tokens         TokenStore
	log            logging.Logger
	limiter        *rate.Limiter
	requestTimeout time.Duration
	uploadTimeout  time.Duration
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithTimeouts(request, upload time.Duration) Option {
	return func(c *HTTPClient) {
		if request > 0 {
			c.requestTimeout = request
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewHTTPClient(baseURL string, tokens TokenStore, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{},
		tokens:         tokens,
		log:            logging.Discard(),
		requestTimeout: DefaultRequestTimeout,
		uploadTimeout:  DefaultUploadTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type call struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	size        int64
	contentType string
	timeout     time.Duration
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs one request and reads the whole response body while the
// timeout is still running.
func (c *HTTPClient) send(ctx context.Context, cl call) (*response, error) {
	timeout := cl.timeout
	if timeout == 0 {
		timeout = c.requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportError(ctx, cl, err)
		}
	}

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, cl.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if cl.size > 0 {
		req.ContentLength = cl.size
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	c.log.Debug(ctx, "api request", "method", cl.method, "path", cl.path, "auth", token != "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, cl, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, cl, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, body)
		c.log.Warn(ctx, "api response error",
			"method", cl.method, "path", cl.path, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *HTTPClient) transportError(ctx context.Context, cl call, err error) error {
	c.log.Warn(ctx, "api request error", "method", cl.method, "path", cl.path, "error", err)
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// doJSON sends in as a JSON body (when non-nil) and decodes the response into
// out (when non-nil).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	cl := call{method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		cl.body = bytes.NewReader(b)
		cl.contentType = "application/json"
	}

	resp, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	return decode(resp.body, out)
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *HTTPClient) Signup(ctx context.Context, in models.Signup) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login persists the returned token before returning.
func (c *HTTPClient) Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		if err := c.tokens.SetToken(ctx, out.Token); err != nil {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	return &out, nil
}

// Verify confirms an email address with the token sent by the backend.
func (c *HTTPClient) Verify(ctx context.Context, token string) error {
	_, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/auth/verify",
		query:  url.Values{"token": {token}},
	})
	return err
}

// Me fetches the current identity. The backend answers either {"user": {...}}
// or the bare user object.
func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	resp, err := c.send(ctx, call{method: http.MethodGet, path: "/auth/me"})
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := decode(resp.body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.User != nil {
		return wrapped.User, nil
	}

	var u models.User
	if err := decode(resp.body, &u); err != nil {
		return nil, err
	}
	if u.ID == "" && u.Email == "" && u.FirstName == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrInvalidResponse)
	}
	return &u, nil
}

// Logout notifies the backend and always clears the local session, even
// when the remote call fails. It never returns an error.
func (c *HTTPClient) Logout(ctx context.Context) {
	if _, err := c.send(ctx, call{method: http.MethodPost, path: "/auth/logout"}); err != nil {
		c.log.Warn(ctx, "remote logout failed", "error", err)
	}
	// local cleanup must not depend on the caller's context still being live
	if err := c.tokens.ClearSession(context.WithoutCancel(ctx)); err != nil {
		c.log.Error(ctx, "clear local session", "error", err)
	}
}

type profileEnvelope struct {
	Profile *models.Profile `json:"profile"`
}

func (e profileEnvelope) result() (*models.Profile, error) {
	if e.Profile == nil {
		return nil, fmt.Errorf("%w: missing profile", ErrInvalidResponse)
	}
	return e.Profile, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context) (*models.Profile, error) {
	var out profileEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return out.result()
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.Profile, error) {
	var out profileEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/profile", in, &out); err != nil {
		return nil, err
	}
	return out.result()
}

// UploadDocument posts f as multipart form data: the file under "file" and
// the classification under "docType" when set. onProgress may be nil.
func (c *HTTPClient) UploadDocument(ctx context.Context, f FileUpload, onProgress ProgressFunc) (*models.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if f.DocType != "" {
		if err := mw.WriteField("docType", string(f.DocType)); err != nil {
			return nil, fmt.Errorf("write docType: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	size := int64(buf.Len())
	resp, err := c.send(ctx, call{
		method:      http.MethodPost,
		path:        "/profile/document",
		body:        newProgressReader(&buf, size, onProgress),
		size:        size,
		contentType: mw.FormDataContentType(),
		timeout:     c.uploadTimeout,
	})
	if err != nil {
		return nil, err
	}

	var out models.UploadResponse
	if err := decode(resp.body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DownloadDocument(ctx context.Context, id string) (*models.Download, error) {
	resp, err := c.send(ctx, call{
		method: http.MethodGet,
		path:   "/profile/document/" + url.PathEscape(id) + "/download",
	})
	if err != nil {
		return nil, err
	}
	return &models.Download{
		Body:        resp.body,
		Filename:    filenameFromDisposition(resp.header.Get("Content-Disposition")),
		ContentType: resp.header.Get("Content-Type"),
	}, nil
}

// DeleteDocument removes a document and returns the updated profile when the
// backend includes it.
func (c *HTTPClient) DeleteDocument(ctx context.Context, id string) (*models.Profile, error) {
	var out profileEnvelope
	if err := c.doJSON(ctx, http.MethodDelete, "/profile/document/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

func (c *HTTPClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	resp, err := c.send(ctx, call{method: http.MethodGet, path: "/jobs"})
	if err != nil {
		return nil, err
	}

	// accepts a bare array or {"jobs": [...]}
	var jobs []models.Job
	if err := json.Unmarshal(resp.body, &jobs); err == nil {
		return jobs, nil
	}
	var wrapped struct {
		Jobs []models.Job `json:"jobs"`
	}
	if err := decode(resp.body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Jobs, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return c.jobCall(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil)
}

func (c *HTTPClient) CreateJob(ctx context.Context, in models.Job) (*models.Job, error) {
	in.ID = ""
	return c.jobCall(ctx, http.MethodPost, "/jobs", in)
}

func (c *HTTPClient) UpdateJob(ctx context.Context, id string, in models.Job) (*models.Job, error) {
	in.ID = ""
	return c.jobCall(ctx, http.MethodPut, "/jobs/"+url.PathEscape(id), in)
}

func (c *HTTPClient) DeleteJob(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil)
}

// jobCall decodes either {"job": {...}} or the bare job.
func (c *HTTPClient) jobCall(ctx context.Context, method, path string, in any) (*models.Job, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, method, path, in, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Job *models.Job `json:"job"`
	}
	if err := decode(raw, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Job != nil {
		return wrapped.Job, nil
	}
	var j models.Job
	if err := decode(raw, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
