package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"goighem/internal/core"
	"goighem/internal/store"
)

// CredentialStore persists local accounts. The memory and sqlite store
// adapters implement it; the remote backend authenticates upstream instead.
type CredentialStore interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error)
	Credentials(ctx context.Context, email string) (core.User, string, error)
}

// LocalAuthenticator verifies passwords against bcrypt hashes in the local
// store and issues access tokens itself.
type LocalAuthenticator struct {
	creds  CredentialStore
	tokens *TokenManager
}

func NewLocalAuthenticator(creds CredentialStore, tokens *TokenManager) *LocalAuthenticator {
	return &LocalAuthenticator{creds: creds, tokens: tokens}
}

func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, hash, err := a.creds.Credentials(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("look up credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return a.sessionFor(u)
}

func (a *LocalAuthenticator) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, ErrInvalidCredentials
	}
	if len(password) < 6 {
		return Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.creds.CreateUser(ctx, core.User{Email: email, DisplayName: displayName}, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return Session{}, ErrEmailExists
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	return a.sessionFor(u)
}

func (a *LocalAuthenticator) sessionFor(u core.User) (Session, error) {
	token, err := a.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AccessToken: token,
	}, nil
}
