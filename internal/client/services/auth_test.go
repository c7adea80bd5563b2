package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/applytrack/internal/client/apitest"
	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupStorage(t *testing.T) *metadata.SessionStorage {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return metadata.NewSessionStorage(db)
}

func storedToken(t *testing.T, st *metadata.SessionStorage) string {
	t.Helper()
	tok, err := st.Token(context.Background())
	require.NoError(t, err)
	return tok
}

// ---- fake auth API ----

// fakeAuthAPI mimics the HTTP client: Login persists the token it returns
// and Logout clears local storage. Gates let tests hold a call in flight.
type fakeAuthAPI struct {
	store *metadata.SessionStorage

	mu          sync.Mutex
	loginRes    map[string]*models.AuthResponse
	loginErr    error
	loginGate   map[string]chan struct{}
	meUser      *models.User
	meErr       error
	meGate      chan struct{}
	logoutGate  chan struct{}
	started     chan string
	loginCalls  int
	meCalls     int
	logoutCalls int
}

func newFakeAuthAPI(store *metadata.SessionStorage) *fakeAuthAPI {
	return &fakeAuthAPI{
		store:     store,
		loginRes:  map[string]*models.AuthResponse{},
		loginGate: map[string]chan struct{}{},
		started:   make(chan string, 16),
	}
}

func (f *fakeAuthAPI) Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error) {
	f.mu.Lock()
	f.loginCalls++
	gate := f.loginGate[in.Email]
	res, err := f.loginRes[in.Email], f.loginErr
	f.mu.Unlock()

	f.started <- "login:" + in.Email
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &client.APIError{Status: 401, Message: "invalid credentials"}
	}
	if res.Token != "" {
		if err := f.store.SetToken(ctx, res.Token); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	f.meCalls++
	gate := f.meGate
	f.mu.Unlock()

	f.started <- "me"
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	u := *f.meUser
	return &u, nil
}

func (f *fakeAuthAPI) Logout(ctx context.Context) {
	f.mu.Lock()
	f.logoutCalls++
	gate := f.logoutGate
	f.mu.Unlock()

	if gate != nil {
		f.started <- "logout"
		<-gate
	}
	_ = f.store.ClearSession(ctx)
}

func (f *fakeAuthAPI) calls() (login, me, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.meCalls, f.logoutCalls
}

// ---- TESTS ----

func TestInit_NoTokenIsAnonymousWithoutCalls(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	s := NewSession(api, st, nil)
	require.Equal(t, StateInitializing, s.State())

	state := s.Init(context.Background())

	assert.Equal(t, StateAnonymous, state)
	assert.Nil(t, s.User())
	login, me, logout := api.calls()
	assert.Zero(t, login+me+logout)
}

func TestInit_InvalidTokenClearsIt(t *testing.T) {
	srv := apitest.New(t)
	st := setupStorage(t)
	require.NoError(t, st.SetToken(context.Background(), "expired"))
	c := client.NewHTTPClient(srv.BaseURL(), st)
	s := NewSession(c, st, nil)

	state := s.Init(context.Background())

	assert.Equal(t, StateAnonymous, state)
	assert.Equal(t, 1, srv.Calls(apitest.RouteMe))
	assert.Equal(t, 1, srv.TotalCalls())
	assert.Empty(t, storedToken(t, st))
}

func TestInit_ValidTokenAuthenticates(t *testing.T) {
	srv := apitest.New(t)
	st := setupStorage(t)
	ctx := context.Background()
	require.NoError(t, st.SetToken(ctx, "token-1"))
	s := NewSession(client.NewHTTPClient(srv.BaseURL(), st), st, nil)

	require.Equal(t, StateAuthenticated, s.Init(ctx))
	require.NotNil(t, s.User())
	assert.Equal(t, "Ada", s.User().FirstName)
	assert.Equal(t, "token-1", s.Token())

	cached := s.CachedUser(ctx)
	require.NotNil(t, cached)
	assert.Equal(t, "ada@example.com", cached.Email)
}

func TestLogout_IdempotentWhenAnonymous(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	s := NewSession(api, st, nil)
	s.Init(context.Background())

	hooks := 0
	s.OnSignedOut(func() { hooks++ })

	require.NotPanics(t, func() {
		s.Logout(context.Background())
		s.Logout(context.Background())
	})

	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, storedToken(t, st))
	assert.Nil(t, s.CachedUser(context.Background()))
	assert.Equal(t, 2, hooks)
}

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	srv := apitest.New(t, func(s *apitest.State) {
		s.Logout = &apitest.Reply{Status: 500, Body: map[string]string{"error": "down"}}
	})
	st := setupStorage(t)
	s := NewSession(client.NewHTTPClient(srv.BaseURL(), st), st, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)

	s.Logout(ctx)

	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, storedToken(t, st))
	assert.Nil(t, s.CachedUser(ctx))
}

func TestLogin_ScenarioTokenAndUserInResponse(t *testing.T) {
	srv := apitest.New(t, func(s *apitest.State) {
		s.Login = &apitest.Reply{Body: map[string]any{"token": "abc", "user": map[string]string{"firstName": "A"}}}
	})
	st := setupStorage(t)
	s := NewSession(client.NewHTTPClient(srv.BaseURL(), st), st, nil)
	ctx := context.Background()
	s.Init(ctx)

	u, err := s.Login(ctx, models.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "A", u.FirstName)
	assert.Equal(t, "A", s.User().FirstName)
	assert.Equal(t, "abc", storedToken(t, st))
	assert.Zero(t, srv.Calls(apitest.RouteMe), "user came with the login response")

	cached, err := st.CachedUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "A", cached.FirstName)
}

func TestLogin_ThenRefreshMatchesIdentityEndpoint(t *testing.T) {
	srv := apitest.New(t)
	st := setupStorage(t)
	s := NewSession(client.NewHTTPClient(srv.BaseURL(), st), st, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)

	srv.Do(func(st *apitest.State) { st.User.LastName = "King" })

	u, err := s.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "King", u.LastName)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestLogin_FollowUpIdentityFetch(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1"}
	api.meUser = &models.User{ID: "u1", FirstName: "Ada"}
	s := NewSession(api, st, nil)

	u, err := s.Login(context.Background(), models.Credentials{Email: "ada@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", u.FirstName)
	_, me, _ := api.calls()
	assert.Equal(t, 1, me)
	assert.Equal(t, "t1", s.Token())
}

func TestLogin_FollowUpFailureLeavesAnonymous(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1"}
	api.meErr = client.ErrUnavailable
	s := NewSession(api, st, nil)

	_, err := s.Login(context.Background(), models.Credentials{Email: "ada@example.com"})

	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, storedToken(t, st))
}

func TestLogin_ErrorKeepsPriorState(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1", User: &models.User{FirstName: "Ada"}}
	s := NewSession(api, st, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = s.Login(ctx, models.Credentials{Email: "eve@example.com"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)

	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "Ada", s.User().FirstName)
	assert.Equal(t, "t1", storedToken(t, st))
}

func TestLogin_SupersededByLogout(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	gate := make(chan struct{})
	api.loginGate["ada@example.com"] = gate
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "late", User: &models.User{FirstName: "Ada"}}
	s := NewSession(api, st, nil)
	ctx := context.Background()
	s.Init(ctx)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com"})
		errc <- err
	}()
	require.Equal(t, "login:ada@example.com", <-api.started)

	s.Logout(ctx)
	close(gate)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, storedToken(t, st), "token written by the superseded login is removed")
}

func TestLogout_NotUndoneByOverlappingFailedLogin(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1", User: &models.User{FirstName: "Ada"}}
	s := NewSession(api, st, nil)
	ctx := context.Background()
	s.Init(ctx)

	var signedOut int
	s.OnSignedOut(func() { signedOut++ })

	_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com"})
	require.NoError(t, err)
	<-api.started

	gate := make(chan struct{})
	api.mu.Lock()
	api.logoutGate = gate
	api.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Logout(ctx)
	}()
	require.Equal(t, "logout", <-api.started)

	_, err = s.Login(ctx, models.Credentials{Email: "wrong@example.com"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	require.Equal(t, "login:wrong@example.com", <-api.started)

	close(gate)
	<-done

	assert.Equal(t, StateAnonymous, s.State())
	assert.Nil(t, s.User())
	assert.Empty(t, storedToken(t, st))
	assert.Equal(t, 1, signedOut)
}

func TestLogin_FailedLoginDoesNotDiscardInFlightOne(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	gate := make(chan struct{})
	api.loginGate["ada@example.com"] = gate
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1", User: &models.User{FirstName: "Ada"}}
	s := NewSession(api, st, nil)
	ctx := context.Background()
	s.Init(ctx)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com"})
		errc <- err
	}()
	require.Equal(t, "login:ada@example.com", <-api.started)

	_, err := s.Login(ctx, models.Credentials{Email: "wrong@example.com"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	require.Equal(t, "login:wrong@example.com", <-api.started)

	close(gate)

	require.NoError(t, <-errc)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "Ada", s.User().FirstName)
	assert.Equal(t, "t1", storedToken(t, st))
}

func TestLogout_LaterLoginThatCommitsFirstWins(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	api.loginRes["ada@example.com"] = &models.AuthResponse{Token: "t1", User: &models.User{FirstName: "Ada"}}
	gate := make(chan struct{})
	api.logoutGate = gate
	s := NewSession(api, st, nil)
	ctx := context.Background()
	s.Init(ctx)

	var signedOut int
	s.OnSignedOut(func() { signedOut++ })

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Logout(ctx)
	}()
	require.Equal(t, "logout", <-api.started)

	_, err := s.Login(ctx, models.Credentials{Email: "ada@example.com"})
	require.NoError(t, err)
	<-api.started

	close(gate)
	<-done

	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "Ada", s.User().FirstName)
	assert.Equal(t, "t1", storedToken(t, st), "token is written back after the stale local clear")
	assert.Zero(t, signedOut)
}

func TestLogin_OlderLoginDoesNotOverwriteNewer(t *testing.T) {
	st := setupStorage(t)
	api := newFakeAuthAPI(st)
	gate := make(chan struct{})
	api.loginGate["old@example.com"] = gate
	api.loginRes["old@example.com"] = &models.AuthResponse{Token: "old", User: &models.User{FirstName: "Old"}}
	api.loginRes["new@example.com"] = &models.AuthResponse{Token: "new", User: &models.User{FirstName: "New"}}
	s := NewSession(api, st, nil)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := s.Login(ctx, models.Credentials{Email: "old@example.com"})
		errc <- err
	}()
	require.Equal(t, "login:old@example.com", <-api.started)

	_, err := s.Login(ctx, models.Credentials{Email: "new@example.com"})
	require.NoError(t, err)
	<-api.started
	close(gate)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, "New", s.User().FirstName)
	assert.Equal(t, "new", storedToken(t, st))
}

func TestRefresh_StaleResultIsDiscarded(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()
	require.NoError(t, st.SetToken(ctx, "t1"))
	api := newFakeAuthAPI(st)
	api.meUser = &models.User{FirstName: "Ada"}
	s := NewSession(api, st, nil)
	require.Equal(t, StateAuthenticated, s.Init(ctx))
	<-api.started

	gate := make(chan struct{})
	api.mu.Lock()
	api.meGate = gate
	api.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(ctx)
	}()
	require.Equal(t, "me", <-api.started)

	s.Logout(ctx)
	close(gate)
	<-done

	assert.Equal(t, StateAnonymous, s.State())
	assert.Nil(t, s.User())
}

func TestRefresh_FailureClearsToken(t *testing.T) {
	st := setupStorage(t)
	ctx := context.Background()
	require.NoError(t, st.SetToken(ctx, "t1"))
	api := newFakeAuthAPI(st)
	api.meUser = &models.User{FirstName: "Ada"}
	s := NewSession(api, st, nil)
	require.Equal(t, StateAuthenticated, s.Init(ctx))

	api.mu.Lock()
	api.meErr = &client.APIError{Status: 401, Message: "jwt expired"}
	api.mu.Unlock()

	_, err := s.Refresh(ctx)

	assert.True(t, errors.Is(err, client.ErrUnauthorized))
	assert.Equal(t, StateAnonymous, s.State())
	assert.Empty(t, storedToken(t, st))
}

func TestRefresh_WithoutToken(t *testing.T) {
	st := setupStorage(t)
	s := NewSession(newFakeAuthAPI(st), st, nil)

	_, err := s.Refresh(context.Background())

	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, StateAnonymous, s.State())
}
