// Package session resolves the current user identity and notifies the
// rest of the app when it changes.
package session

import (
	"context"
	"errors"
	"sync"

	"goighem/internal/core"
	"goighem/internal/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too short")
	ErrNoSession          = errors.New("no active session")
)

// Session is the identity the client acts as. Immutable for its lifetime.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
	AccessToken string
}

// Authenticator is the identity provider the gate sits in front of.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (Session, error)
}

// Event describes a session change delivered to subscribers.
type Event struct {
	// Session is nil after a sign-out.
	Session *Session
}

// Gate owns the current session and fans out change events. Subscribers
// (the sync layer, the change feed) react to events rather than polling.
type Gate struct {
	auth   Authenticator
	logger *log.Logger

	mu      sync.RWMutex
	current *Session
	subs    []chan Event
}

func NewGate(auth Authenticator, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.New(nil, log.ComponentSession)
	}
	return &Gate{auth: auth, logger: logger}
}

// Current returns the active session, or nil when signed out.
func (g *Gate) Current() *Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return nil
	}
	s := *g.current
	return &s
}

// Token returns the current access token, empty when signed out. Shaped to
// be handed to the remote store as its token source.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return ""
	}
	return g.current.AccessToken
}

// UserID returns the acting user's id, or empty when signed out.
func (g *Gate) UserID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return ""
	}
	return g.current.UserID
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	s, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		g.logger.WarnContext(ctx, "sign-in failed", "email", email, log.FieldError, err.Error())
		return Session{}, err
	}
	g.install(&s)
	g.logger.InfoContext(ctx, "signed in", log.FieldUserID, s.UserID)
	return s, nil
}

func (g *Gate) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	if email == "" || displayName == "" {
		return Session{}, ErrInvalidCredentials
	}
	if len(password) < 6 {
		return Session{}, ErrWeakPassword
	}
	s, err := g.auth.SignUp(ctx, email, password, displayName)
	if err != nil {
		g.logger.WarnContext(ctx, "sign-up failed", "email", email, log.FieldError, err.Error())
		return Session{}, err
	}
	g.install(&s)
	g.logger.InfoContext(ctx, "signed up", log.FieldUserID, s.UserID)
	return s, nil
}

// SignOut drops the session. Tokens are stateless so there is nothing to
// revoke remotely; subscribers clear their local state on the nil event.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return ErrNoSession
	}
	userID := g.current.UserID
	g.current = nil
	subs := append([]chan Event(nil), g.subs...)
	g.mu.Unlock()

	for _, ch := range subs {
		ch <- Event{Session: nil}
	}
	g.logger.InfoContext(ctx, "signed out", log.FieldUserID, userID)
	return nil
}

// Subscribe returns a channel of session changes. The channel is buffered;
// callers must drain it. Cancel releases the subscription.
func (g *Gate) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 4)
	g.mu.Lock()
	g.subs = append(g.subs, ch)
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, c := range g.subs {
			if c == ch {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (g *Gate) install(s *Session) {
	g.mu.Lock()
	g.current = s
	subs := append([]chan Event(nil), g.subs...)
	g.mu.Unlock()

	snapshot := *s
	for _, ch := range subs {
		ch <- Event{Session: &snapshot}
	}
}

// UserOf converts a session to its core identity record.
func (s Session) UserOf() core.User {
	return core.User{ID: s.UserID, Email: s.Email, DisplayName: s.DisplayName}
}
