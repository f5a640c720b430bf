// Package sync keeps the in-memory collections consistent with the remote
// store. It is the layer everything downstream reads from: the aggregation
// functions, the HTTP dashboard, the mutation reconciliation.
package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"goighem/internal/core"
	"goighem/internal/family"
	"goighem/internal/log"
	"goighem/internal/store"
)

// Snapshot is one consistent view of the loaded collections. Collections
// are replaced wholesale, never patched partially, so a snapshot either
// reflects a completed fetch or the previous one.
type Snapshot struct {
	UserID   string
	Family   family.State
	Expenses []core.Expense
	Shopping []core.ShoppingItem
	Goals    []core.SavingGoal
	Pantry   []core.PantryItem
	Profile  core.BudgetProfile
}

// Syncer loads the current user's collections from the store. Safe for
// concurrent use: overlapping syncs resolve by generation, newest wins,
// and a stale in-flight sync can never overwrite a newer result.
type Syncer struct {
	store  store.Store
	family *family.Service
	logger *log.Logger

	gen     atomic.Uint64
	mu      sync.RWMutex
	applied uint64
	current Snapshot
}

func New(st store.Store, fam *family.Service, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(nil, log.ComponentSync)
	}
	return &Syncer{store: st, family: fam, logger: logger}
}

// Snapshot returns the current view. The slices are shared; callers treat
// them as read-only.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Sync reloads every collection for userID and installs the result. The
// owner-id set is computed from the family link before any fetch, so a
// link change between resolve and fetch is picked up by the next sync
// rather than producing a mixed view. A collection whose fetch fails keeps
// its previous value instead of flashing empty.
func (s *Syncer) Sync(ctx context.Context, userID string) (Snapshot, error) {
	gen := s.gen.Add(1)

	famState := s.family.Resolve(ctx, userID)
	owners := []string{userID}
	if famState.Connected() {
		owners = append(owners, famState.PartnerID())
	}

	var (
		expenses []core.Expense
		shopping []core.ShoppingItem
		goals    []core.SavingGoal
		pantry   []core.PantryItem
		profile  core.BudgetProfile

		expensesErr, shoppingErr, goalsErr, pantryErr, profileErr error
	)

	// Each collection fetches independently; one failure must not discard
	// the others' results.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.store.ListExpenses(gctx, owners)
		if err != nil {
			expensesErr = err
			return nil
		}
		expenses = visibleExpenses(raw, userID, famState.PartnerID())
		return nil
	})
	g.Go(func() error {
		shopping, shoppingErr = s.store.ListShoppingItems(gctx, userID)
		return nil
	})
	g.Go(func() error {
		goals, goalsErr = s.store.ListGoals(gctx, userID)
		return nil
	})
	g.Go(func() error {
		pantry, pantryErr = s.store.ListPantryItems(gctx, userID)
		return nil
	})
	g.Go(func() error {
		profile, profileErr = s.loadProfile(gctx, userID)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer sync already applied; discard this one entirely.
	if gen <= s.applied {
		s.logger.DebugContext(ctx, "discarding stale sync", "generation", gen, "applied", s.applied)
		return s.current, nil
	}

	prev := s.current
	next := Snapshot{
		UserID:   userID,
		Family:   famState,
		Expenses: expenses,
		Shopping: shopping,
		Goals:    goals,
		Pantry:   pantry,
		Profile:  profile,
	}
	var firstErr error
	keep := func(err error, apply func()) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = err
		}
		// Keep the previous value only within the same identity.
		if prev.UserID == userID {
			apply()
		}
	}
	keep(expensesErr, func() { next.Expenses = prev.Expenses })
	keep(shoppingErr, func() { next.Shopping = prev.Shopping })
	keep(goalsErr, func() { next.Goals = prev.Goals })
	keep(pantryErr, func() { next.Pantry = prev.Pantry })
	keep(profileErr, func() { next.Profile = prev.Profile })

	s.applied = gen
	s.current = next

	if firstErr != nil {
		s.logger.WarnContext(ctx, "sync completed with partial results",
			log.FieldUserID, userID, "generation", gen, log.FieldError, firstErr.Error())
		return next, firstErr
	}
	s.logger.DebugContext(ctx, "sync complete",
		log.FieldUserID, userID, "generation", gen, "expenses", len(next.Expenses))
	return next, nil
}

// Clear drops all loaded state at sign-out. It consumes a generation so any
// sync still in flight for the previous identity is discarded when it lands.
func (s *Syncer) Clear() {
	gen := s.gen.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = gen
	s.current = Snapshot{}
}

// loadProfile returns the stored budget profile, or a default one for users
// who have never saved budgets.
func (s *Syncer) loadProfile(ctx context.Context, userID string) (core.BudgetProfile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.BudgetProfile{
				UserID:        userID,
				MonthlyBudget: core.DefaultMonthlyBudget,
				WeeklyBudget:  core.DefaultWeeklyBudget,
				Theme:         core.ThemePink,
			}, nil
		}
		return core.BudgetProfile{}, err
	}
	return p, nil
}

// visibleExpenses applies the sharing predicate client-side: own expenses
// always, partner expenses only when marked shared. The fetch is keyed by
// owner ids, so anything else in the response is dropped here.
func visibleExpenses(in []core.Expense, userID, partnerID string) []core.Expense {
	out := make([]core.Expense, 0, len(in))
	for _, e := range in {
		switch {
		case e.OwnerID == userID:
			out = append(out, e)
		case partnerID != "" && e.OwnerID == partnerID && e.FamilyShared:
			out = append(out, e)
		}
	}
	return out
}
