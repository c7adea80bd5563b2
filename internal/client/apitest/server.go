// Package apitest provides an in-process fake of the job-tracking backend
// for tests. It serves the REST routes the client uses from a chi router,
// counts calls per route, and lets tests script failures and delayed
// consistency of the document list.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/common"
	"github.com/go-chi/chi/v5"
)

// Route names used by Calls and AuthHeaders.
const (
	RouteSignup        = "POST /auth/signup"
	RouteLogin         = "POST /auth/login"
	RouteVerify        = "GET /auth/verify"
	RouteMe            = "GET /auth/me"
	RouteLogout        = "POST /auth/logout"
	RouteGetProfile    = "GET /profile"
	RouteUpdateProfile = "PUT /profile"
	RouteUpload        = "POST /profile/document"
	RouteDownload      = "GET /profile/document/{id}/download"
	RouteDeleteDoc     = "DELETE /profile/document/{id}"
	RouteListJobs      = "GET /jobs"
	RouteGetJob        = "GET /jobs/{id}"
	RouteCreateJob     = "POST /jobs"
	RouteUpdateJob     = "PUT /jobs/{id}"
	RouteDeleteJob     = "DELETE /jobs/{id}"
)

// Reply is a scripted response. A zero Status means 200.
type Reply struct {
	Status int
	Body   any
}

// ProfileReply scripts one GET /profile answer. Documents replaces the
// document list of the stored profile for that answer; a non-zero Status
// answers with an error instead.
type ProfileReply struct {
	Status    int
	Documents []models.Document
}

// Upload is a recorded multipart upload.
type Upload struct {
	Filename string
	DocType  string
	Size     int
}

// State is the backend's data and scripted behavior. Tests change it
// through Server.Do.
type State struct {
	Token    string
	User     models.User
	Password string
	Profile  models.Profile
	Jobs     []models.Job

	// Per-route overrides; nil means normal behavior.
	Login  *Reply
	Me     *Reply
	Logout *Reply
	Upload *Reply

	// MeDelay holds identity responses back.
	MeDelay time.Duration

	// ProfileScript answers successive GET /profile calls in order. Once it
	// is exhausted the stored profile is served.
	ProfileScript []ProfileReply

	// UploadHidden keeps uploaded documents out of the stored profile.
	UploadHidden bool

	Disposition  string
	DownloadBody []byte
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	state    State
	calls    map[string]int
	auth     map[string][]string
	uploads  []Upload
	profiles int
	nextID   int
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB, opts ...func(*State)) *Server {
	t.Helper()

	s := &Server{
		state: State{
			Token:    "token-1",
			Password: "secret",
			User:     models.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		},
		calls: map[string]int{},
		auth:  map[string][]string{},
	}
	for _, o := range opts {
		o(&s.state)
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the client should be configured with.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Do runs fn with exclusive access to the backend state.
func (s *Server) Do(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls counts every request served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// AuthHeaders returns the Authorization header of each call to route, in order.
func (s *Server) AuthHeaders(route string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth[route]...)
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.track(RouteSignup, s.signup))
		r.Post("/auth/login", s.track(RouteLogin, s.login))
		r.Get("/auth/verify", s.track(RouteVerify, s.verify))
		r.Get("/auth/me", s.track(RouteMe, s.me))
		r.Post("/auth/logout", s.track(RouteLogout, s.logout))

		r.Get("/profile", s.track(RouteGetProfile, s.authed(s.getProfile)))
		r.Put("/profile", s.track(RouteUpdateProfile, s.authed(s.updateProfile)))
		r.Post("/profile/document", s.track(RouteUpload, s.authed(s.upload)))
		r.Get("/profile/document/{id}/download", s.track(RouteDownload, s.authed(s.download)))
		r.Delete("/profile/document/{id}", s.track(RouteDeleteDoc, s.authed(s.deleteDocument)))

		r.Get("/jobs", s.track(RouteListJobs, s.authed(s.listJobs)))
		r.Post("/jobs", s.track(RouteCreateJob, s.authed(s.createJob)))
		r.Get("/jobs/{id}", s.track(RouteGetJob, s.authed(s.getJob)))
		r.Put("/jobs/{id}", s.track(RouteUpdateJob, s.authed(s.updateJob)))
		r.Delete("/jobs/{id}", s.track(RouteDeleteJob, s.authed(s.deleteJob)))
	})
	return r
}

func (s *Server) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		s.auth[route] = append(s.auth[route], r.Header.Get(common.AuthorizationHeaderName))
		s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Header.Get(common.AuthorizationHeaderName) == common.BearerPrefix+s.state.Token
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeReply(w http.ResponseWriter, rep Reply) {
	status := rep.Status
	if status == 0 {
		status = http.StatusOK
	}
	if s, ok := rep.Body.(string); ok {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, s)
		return
	}
	writeJSON(w, status, rep.Body)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var in models.Signup
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "verification email sent"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	rep := s.state.Login
	ok := in.Email == s.state.User.Email && in.Password == s.state.Password
	body := models.AuthResponse{Token: s.state.Token, User: ptr(s.state.User)}
	s.mu.Unlock()

	if rep != nil {
		writeReply(w, *rep)
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rep, delay := s.state.Me, s.state.MeDelay
	user := s.state.User
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if rep != nil {
		writeReply(w, *rep)
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rep := s.state.Logout
	s.mu.Unlock()

	if rep != nil {
		writeReply(w, *rep)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	idx := s.profiles
	s.profiles++
	p := s.state.Profile
	var script *ProfileReply
	if idx < len(s.state.ProfileScript) {
		script = &s.state.ProfileScript[idx]
	}
	s.mu.Unlock()

	if script != nil {
		if script.Status != 0 {
			writeError(w, script.Status, "profile unavailable")
			return
		}
		p.Documents = script.Documents
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	p := &s.state.Profile
	p.ProfessionalTitle, p.Location, p.Summary = in.ProfessionalTitle, in.Location, in.Summary
	p.Phone, p.Website, p.LinkedIn, p.GitHub, p.Twitter = in.Phone, in.Website, in.LinkedIn, in.GitHub, in.Twitter
	p.Skills = in.Skills
	p.Experiences = in.Experiences
	p.Educations = in.Educations
	p.Certificates = in.Certificates
	for i := range p.Experiences {
		p.Experiences[i].ID = s.newID("exp")
	}
	for i := range p.Educations {
		p.Educations[i].ID = s.newID("edu")
	}
	for i := range p.Certificates {
		p.Certificates[i].ID = s.newID("cert")
	}
	s.state.User.Profile = ptr(*p)
	out := *p
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"profile": out})
}

// newID must be called with s.mu held.
func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	docType := r.FormValue("docType")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads = append(s.uploads, Upload{Filename: hdr.Filename, DocType: docType, Size: len(data)})
	if rep := s.state.Upload; rep != nil {
		writeReply(w, *rep)
		return
	}

	doc := models.Document{
		Ref:          models.Ref{ID: s.newID("doc")},
		Filename:     fmt.Sprintf("%d-%s", time.Now().UnixNano(), hdr.Filename),
		OriginalName: hdr.Filename,
		MimeType:     hdr.Header.Get("Content-Type"),
		Size:         int64(len(data)),
		CreatedAt:    time.Now().UTC(),
		DocType:      models.DocumentType(docType),
	}
	if !s.state.UploadHidden {
		s.state.Profile.Documents = append(s.state.Profile.Documents, doc)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"doc": doc, "profile": s.state.Profile})
}

func (s *Server) findDocument(id string) (models.Document, int, bool) {
	for i, d := range s.state.Profile.Documents {
		if d.ServerID() == id {
			return d, i, true
		}
	}
	return models.Document{}, -1, false
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	doc, _, ok := s.findDocument(id)
	disposition, body := s.state.Disposition, s.state.DownloadBody
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if disposition == "" {
		disposition = fmt.Sprintf(`attachment; filename="%s"`, doc.Title())
	}
	if disposition != "-" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(body)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	_, i, ok := s.findDocument(id)
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	docs := s.state.Profile.Documents
	s.state.Profile.Documents = append(docs[:i:i], docs[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"profile": s.state.Profile})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	jobs := append([]models.Job{}, s.state.Jobs...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) findJob(id string) int {
	for i, j := range s.state.Jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findJob(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": s.state.Jobs[i]})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var in models.Job
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(in.Company) == "" {
		writeError(w, http.StatusBadRequest, "company is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = s.newID("job")
	now := time.Now().UTC()
	in.CreatedAt = &now
	s.state.Jobs = append(s.state.Jobs, in)
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	var in models.Job
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findJob(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	in.ID = s.state.Jobs[i].ID
	in.CreatedAt = s.state.Jobs[i].CreatedAt
	s.state.Jobs[i] = in
	writeJSON(w, http.StatusOK, map[string]any{"job": in})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findJob(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.state.Jobs = append(s.state.Jobs[:i:i], s.state.Jobs[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func ptr[T any](v T) *T { return &v }
