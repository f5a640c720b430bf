package sync

import (
	"sort"

	"goighem/internal/core"
)

// Reconciliation: mutation commands patch the snapshot with the canonical
// record a write returned instead of re-deriving from stale state or
// forcing a full refetch. A later sync supersedes any splice, which is the
// accepted weak-consistency model.

// SpliceExpense inserts or replaces an expense, keeping newest-first order.
func (s *Syncer) SpliceExpense(e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Expenses = replaceOrInsert(s.current.Expenses, e, func(x core.Expense) string { return x.ID })
	sort.SliceStable(s.current.Expenses, func(i, j int) bool {
		return s.current.Expenses[i].OccurredAt.After(s.current.Expenses[j].OccurredAt)
	})
}

func (s *Syncer) RemoveExpense(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Expenses = removeByID(s.current.Expenses, id, func(x core.Expense) string { return x.ID })
}

// SpliceGoal inserts or replaces a goal, keeping newest-first order.
func (s *Syncer) SpliceGoal(g core.SavingGoal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Goals = replaceOrInsert(s.current.Goals, g, func(x core.SavingGoal) string { return x.ID })
	sort.SliceStable(s.current.Goals, func(i, j int) bool {
		return s.current.Goals[i].CreatedAt.After(s.current.Goals[j].CreatedAt)
	})
}

func (s *Syncer) RemoveGoal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Goals = removeByID(s.current.Goals, id, func(x core.SavingGoal) string { return x.ID })
}

// SpliceShoppingItem inserts or replaces an item; the checklist stays FIFO.
func (s *Syncer) SpliceShoppingItem(i core.ShoppingItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Shopping = replaceOrInsert(s.current.Shopping, i, func(x core.ShoppingItem) string { return x.ID })
	sort.SliceStable(s.current.Shopping, func(a, b int) bool {
		return s.current.Shopping[a].CreatedAt.Before(s.current.Shopping[b].CreatedAt)
	})
}

func (s *Syncer) RemoveShoppingItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Shopping = removeByID(s.current.Shopping, id, func(x core.ShoppingItem) string { return x.ID })
}

// SplicePantryItem inserts or replaces a pantry item, soonest expiry first.
func (s *Syncer) SplicePantryItem(p core.PantryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Pantry = replaceOrInsert(s.current.Pantry, p, func(x core.PantryItem) string { return x.ID })
	sort.SliceStable(s.current.Pantry, func(i, j int) bool {
		return s.current.Pantry[i].ExpiresAt.Before(s.current.Pantry[j].ExpiresAt)
	})
}

func (s *Syncer) RemovePantryItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Pantry = removeByID(s.current.Pantry, id, func(x core.PantryItem) string { return x.ID })
}

// SetProfile replaces the loaded budget profile.
func (s *Syncer) SetProfile(p core.BudgetProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Profile = p
}

func replaceOrInsert[T any](list []T, item T, id func(T) string) []T {
	target := id(item)
	out := make([]T, len(list))
	copy(out, list)
	for i := range out {
		if id(out[i]) == target {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

func removeByID[T any](list []T, target string, id func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if id(item) != target {
			out = append(out, item)
		}
	}
	return out
}
