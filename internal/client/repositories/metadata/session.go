package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/common"
	"github.com/dmitrijs2005/applytrack/internal/dbx"
)

// SessionStorage is the typed view over the metadata table used for the
// bearer token and the cached user. Multi-key updates run in one transaction.
type SessionStorage struct {
	db   *sql.DB
	repo Repository
}

func NewSessionStorage(db *sql.DB) *SessionStorage {
	return &SessionStorage{db: db, repo: NewSQLiteRepository(db)}
}

// Token returns the stored bearer token, or "" when none is stored.
func (s *SessionStorage) Token(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, common.StorageKeyToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *SessionStorage) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.repo.Delete(ctx, common.StorageKeyToken)
	}
	return s.repo.Set(ctx, common.StorageKeyToken, []byte(token))
}

// CachedUser returns the last user written by SetCachedUser. A missing or
// unreadable entry yields (nil, nil): the cache is only a display hint.
func (s *SessionStorage) CachedUser(ctx context.Context) (*models.User, error) {
	v, err := s.repo.Get(ctx, common.StorageKeyUser)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal(v, &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

func (s *SessionStorage) SetCachedUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return s.repo.Delete(ctx, common.StorageKeyUser)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.repo.Set(ctx, common.StorageKeyUser, b)
}

// SaveSession writes the token and the cached user in one transaction. An
// empty token leaves the stored one untouched.
func (s *SessionStorage) SaveSession(ctx context.Context, token string, u *models.User) error {
	var user []byte
	if u != nil {
		b, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		user = b
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if token != "" {
			if err := repo.Set(ctx, common.StorageKeyToken, []byte(token)); err != nil {
				return err
			}
		}
		if user == nil {
			return repo.Delete(ctx, common.StorageKeyUser)
		}
		return repo.Set(ctx, common.StorageKeyUser, user)
	})
}

// ClearSession removes both the token and the cached user.
func (s *SessionStorage) ClearSession(ctx context.Context) error {
	return s.repo.Delete(ctx, common.StorageKeyToken, common.StorageKeyUser)
}

// ClearTokenIf deletes the stored token only while it still equals token.
// It reports whether a deletion happened.
func (s *SessionStorage) ClearTokenIf(ctx context.Context, token string) (bool, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		repo := NewSQLiteRepository(tx)
		current, err := repo.Get(ctx, common.StorageKeyToken)
		if err != nil || current == nil || string(current) != token {
			return false, err
		}
		if err := repo.Delete(ctx, common.StorageKeyToken); err != nil {
			return false, err
		}
		return true, nil
	})
}
