// Package auth resolves request credentials to account IDs. Registration and
// token issuance live outside the engine; everything here trusts the session
// table it is handed.
package auth

import (
	"context"
	"errors"

	"github.com/rustyeddy/paperstock/store"
)

// ErrUnauthenticated is returned for unknown or empty tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// CredentialStore maps an opaque session token to an account id.
type CredentialStore interface {
	Identify(ctx context.Context, token string) (accountID string, err error)
}

// SessionStore resolves tokens against the store's sessions table.
type SessionStore struct {
	store *store.Store
}

func NewSessionStore(st *store.Store) *SessionStore {
	return &SessionStore{store: st}
}

// Identify returns the account behind a token, or ErrUnauthenticated.
func (s *SessionStore) Identify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	accountID, err := s.store.LookupSession(ctx, token)
	if errors.Is(err, store.ErrSessionNotFound) {
		return "", ErrUnauthenticated
	}
	return accountID, err
}
