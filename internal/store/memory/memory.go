// Package memory provides an in-process store used as the default dev
// backend and as the double in tests that exercise the sync layer.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"goighem/internal/core"
	"goighem/internal/store"
)

// Store keeps every table in process memory. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	expenses map[string]core.Expense
	shopping map[string]core.ShoppingItem
	goals    map[string]core.SavingGoal
	pantry   map[string]core.PantryItem
	profiles map[string]core.BudgetProfile
	links    map[string]core.FamilyLink
	users    map[string]core.User
	creds    map[string]string // email -> password hash
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		expenses: make(map[string]core.Expense),
		shopping: make(map[string]core.ShoppingItem),
		goals:    make(map[string]core.SavingGoal),
		pantry:   make(map[string]core.PantryItem),
		profiles: make(map[string]core.BudgetProfile),
		links:    make(map[string]core.FamilyLink),
		users:    make(map[string]core.User),
		creds:    make(map[string]string),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(_ context.Context, ownerIDs []string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}
	var out []core.Expense
	for _, e := range s.expenses {
		if owners[e.OwnerID] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return core.Expense{}, store.ErrNotFound
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListShoppingItems(_ context.Context, ownerID string) ([]core.ShoppingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.ShoppingItem
	for _, it := range s.shopping {
		if it.OwnerID == ownerID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertShoppingItem(_ context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	s.shopping[item.ID] = item
	return item, nil
}

func (s *Store) UpdateShoppingItem(_ context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shopping[item.ID]; !ok {
		return core.ShoppingItem{}, store.ErrNotFound
	}
	s.shopping[item.ID] = item
	return item, nil
}

func (s *Store) DeleteShoppingItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shopping[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.shopping, id)
	return nil
}

func (s *Store) ListGoals(_ context.Context, ownerID string) ([]core.SavingGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.SavingGoal
	for _, g := range s.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertGoal(_ context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; !ok {
		return core.SavingGoal{}, store.ErrNotFound
	}
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) ListPantryItems(_ context.Context, ownerID string) ([]core.PantryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.PantryItem
	for _, p := range s.pantry {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Store) InsertPantryItem(_ context.Context, item core.PantryItem) (core.PantryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.pantry[item.ID] = item
	return item, nil
}

func (s *Store) DeletePantryItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pantry[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.pantry, id)
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.BudgetProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.BudgetProfile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertProfile(_ context.Context, p core.BudgetProfile) (core.BudgetProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) ConnectedLink(_ context.Context, userID string) (*core.FamilyLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.Status == core.LinkConnected && l.Involves(userID) {
			link := l
			return &link, nil
		}
	}
	return nil, nil
}

func (s *Store) PendingLinksTo(_ context.Context, userID string) ([]core.FamilyLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.FamilyLink
	for _, l := range s.links {
		if l.Status == core.LinkPending && l.RecipientID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PendingLinksFrom(_ context.Context, userID string) ([]core.FamilyLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.FamilyLink
	for _, l := range s.links {
		if l.Status == core.LinkPending && l.RequesterID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertLink(_ context.Context, l core.FamilyLink) (core.FamilyLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.links[l.ID] = l
	return l, nil
}

func (s *Store) SetLinkStatus(_ context.Context, id string, status core.LinkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return store.ErrNotFound
	}
	l.Status = status
	s.links[id] = l
	return nil
}

func (s *Store) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.links, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

// CreateUser registers an account for local (non-hosted) auth and returns
// the canonical user with its assigned id.
func (s *Store) CreateUser(_ context.Context, u core.User, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.creds[email]; ok {
		return core.User{}, store.ErrDuplicateEmail
	}
	s.users[u.ID] = u
	s.creds[email] = passwordHash
	return u, nil
}

// Credentials returns the stored user and password hash for an email.
func (s *Store) Credentials(_ context.Context, email string) (core.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	hash, ok := s.creds[email]
	if !ok {
		return core.User{}, "", store.ErrNotFound
	}
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return u, hash, nil
		}
	}
	return core.User{}, "", store.ErrNotFound
}
