// Package services contains the application services of the client: the
// auth session, the document upload workflow, profile editing and job
// records. Services talk to the backend only through the client package.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/logging"
)

// SessionState is the lifecycle state of the auth session.
type SessionState string

const (
	StateInitializing  SessionState = "initializing"
	StateAuthenticated SessionState = "authenticated"
	StateAnonymous     SessionState = "anonymous"
)

var (
	// ErrSuperseded is returned by Login when a login or logout that
	// started after it committed first. Its result has been discarded.
	ErrSuperseded = errors.New("superseded by a newer session operation")

	// ErrNoSession is returned by Refresh when no token is stored.
	ErrNoSession = errors.New("not signed in")
)

// AuthAPI is the part of the backend contract the session uses.
type AuthAPI interface {
	Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context)
}

// SessionStore is the local storage owned by the session.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearTokenIf(ctx context.Context, token string) (bool, error)
	CachedUser(ctx context.Context) (*models.User, error)
	SetCachedUser(ctx context.Context, u *models.User) error
	SaveSession(ctx context.Context, token string, u *models.User) error
	ClearSession(ctx context.Context) error
}

// Session is the auth session store. It derives the current user from the
// stored token and is the only writer of the token and the cached user.
//
// Overlapping operations are ordered with counters. Every Login and Logout
// takes a sequence number from gen when it starts; committed holds the
// sequence of the last one that changed the session. An operation commits
// only when no later-started one has committed before it, so a Login that
// fails at the server invalidates nothing. epoch advances whenever an
// operation commits, so an Init or Refresh that started before any commit
// drops its result.
type Session struct {
	api   AuthAPI
	store SessionStore
	log   logging.Logger

	mu        sync.Mutex
	gen       uint64
	committed uint64
	epoch     uint64
	state     SessionState
	user      *models.User
	token     string
	signedOut []func()
}

func NewSession(api AuthAPI, store SessionStore, log logging.Logger) *Session {
	if log == nil {
		log = logging.Discard()
	}
	return &Session{api: api, store: store, log: log, state: StateInitializing}
}

// OnSignedOut registers fn to run after every completed Logout.
func (s *Session) OnSignedOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = append(s.signedOut, fn)
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns a copy of the current user, nil unless authenticated.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token is the bearer token of the authenticated session, "" otherwise.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// CachedUser returns the last user persisted locally. It is a display hint
// only and may be stale.
func (s *Session) CachedUser(ctx context.Context) *models.User {
	u, err := s.store.CachedUser(ctx)
	if err != nil {
		s.log.Warn(ctx, "read cached user", "error", err)
		return nil
	}
	return u
}

// Init resolves the startup state. Without a stored token it makes no
// network call. With one, it makes exactly one identity call; a failure
// clears the token. Failures are logged, never returned.
func (s *Session) Init(ctx context.Context) SessionState {
	epoch := s.currentEpoch()

	token, err := s.store.Token(ctx)
	if err != nil {
		s.log.Warn(ctx, "read stored token", "error", err)
	}
	if token == "" {
		s.mu.Lock()
		if s.epoch == epoch {
			s.setAnonymousLocked()
		}
		s.mu.Unlock()
		return s.State()
	}

	_, _ = s.identify(ctx, epoch, token)
	return s.State()
}

// Refresh re-reads the identity from the server. A failure is handled like a
// failed startup check and also returned.
func (s *Session) Refresh(ctx context.Context) (*models.User, error) {
	epoch := s.currentEpoch()

	token, err := s.store.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	if token == "" {
		s.mu.Lock()
		if s.epoch == epoch {
			s.setAnonymousLocked()
		}
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	return s.identify(ctx, epoch, token)
}

// identify runs one identity call for token and commits the outcome unless
// another operation committed since epoch was read.
func (s *Session) identify(ctx context.Context, epoch uint64, token string) (*models.User, error) {
	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	if s.epoch != epoch {
		s.log.Debug(ctx, "discarding stale identity result")
		return s.userLocked(), nil
	}

	if err != nil {
		s.log.Warn(ctx, "identity check failed", "error", err)
		if _, cerr := s.store.ClearTokenIf(ctx, token); cerr != nil {
			s.log.Error(ctx, "clear token", "error", cerr)
		}
		s.setAnonymousLocked()
		return nil, err
	}

	s.setAuthenticatedLocked(ctx, user, token)
	return s.userLocked(), nil
}

// Login authenticates with credentials. When the response carries no user a
// follow-up identity call is made. Errors of the login call leave the prior
// state unchanged.
func (s *Session) Login(ctx context.Context, creds models.Credentials) (*models.User, error) {
	seq := s.nextGen()

	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	token := res.Token
	if token == "" {
		// the client persists the token itself; fall back to what it stored
		if token, err = s.store.Token(ctx); err != nil {
			return nil, fmt.Errorf("read stored token: %w", err)
		}
	}

	user := res.User
	var meErr error
	if user == nil {
		user, meErr = s.api.Me(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed > seq {
		s.reconcileStaleTokenLocked(ctx, token)
		return nil, ErrSuperseded
	}
	s.committed = seq

	if meErr != nil {
		s.log.Warn(ctx, "identity fetch after login failed", "error", meErr)
		if _, err := s.store.ClearTokenIf(ctx, token); err != nil {
			s.log.Error(ctx, "clear token", "error", err)
		}
		s.epoch++
		s.setAnonymousLocked()
		return nil, fmt.Errorf("fetch identity: %w", meErr)
	}

	s.epoch++
	s.setAuthenticatedLocked(ctx, user, token)
	return s.userLocked(), nil
}

// Logout notifies the server, clears local storage, moves to anonymous and
// then runs the signed-out hooks. It is idempotent and never fails. The only
// case where it leaves the session alone is a Login that started after it
// and committed first.
func (s *Session) Logout(ctx context.Context) {
	seq := s.nextGen()

	s.api.Logout(ctx)

	s.mu.Lock()
	if s.committed > seq {
		// the client already dropped the newer session's token from storage
		if err := s.store.SaveSession(context.WithoutCancel(ctx), s.token, s.user); err != nil {
			s.log.Error(ctx, "restore session after overlapping logout", "error", err)
		}
		s.mu.Unlock()
		return
	}
	s.committed = seq
	if err := s.store.ClearSession(context.WithoutCancel(ctx)); err != nil {
		s.log.Error(ctx, "clear local session", "error", err)
	}
	s.epoch++
	s.setAnonymousLocked()
	hooks := slices.Clone(s.signedOut)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (s *Session) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// reconcileStaleTokenLocked undoes the token write of a superseded login so
// storage matches the committed session.
func (s *Session) reconcileStaleTokenLocked(ctx context.Context, token string) {
	if token == "" || token == s.token {
		return
	}
	stored, err := s.store.Token(ctx)
	if err != nil || stored != token {
		return
	}
	if s.state == StateAuthenticated && s.token != "" {
		err = s.store.SetToken(ctx, s.token)
	} else {
		_, err = s.store.ClearTokenIf(ctx, token)
	}
	if err != nil {
		s.log.Error(ctx, "restore token after superseded login", "error", err)
	}
}

func (s *Session) setAuthenticatedLocked(ctx context.Context, u *models.User, token string) {
	s.state = StateAuthenticated
	s.user = u
	s.token = token
	if err := s.store.SaveSession(ctx, token, u); err != nil {
		s.log.Error(ctx, "persist session", "error", err)
	}
}

func (s *Session) setAnonymousLocked() {
	s.state = StateAnonymous
	s.user = nil
	s.token = ""
	// the cached user is a hint for the signed-in case only
	if err := s.store.SetCachedUser(context.Background(), nil); err != nil {
		s.log.Warn(context.Background(), "clear cached user", "error", err)
	}
}

func (s *Session) userLocked() *models.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
