// Package store defines the ports to the row store and the field
// normalization boundary between storage records and the in-memory model.
package store

import (
	"context"
	"errors"

	"goighem/internal/core"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned on sign-up with an email that already
	// has an account.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Ports for the row store, one narrow interface per table. Adapters assign
// an id on insert when the caller left it empty and return the canonical
// record, which callers splice into local state as-is.
type (
	ExpenseStore interface {
		// ListExpenses returns expenses owned by any of ownerIDs,
		// newest-first by occurrence time. The owner set is decided by the
		// caller before the fetch; visibility trimming beyond ownership
		// happens client-side.
		ListExpenses(ctx context.Context, ownerIDs []string) ([]core.Expense, error)
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	ShoppingStore interface {
		// ListShoppingItems returns the owner's checklist oldest-first,
		// stable FIFO.
		ListShoppingItems(ctx context.Context, ownerID string) ([]core.ShoppingItem, error)
		InsertShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error)
		UpdateShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error)
		DeleteShoppingItem(ctx context.Context, id string) error
	}

	GoalStore interface {
		// ListGoals returns the owner's saving goals newest-first by
		// creation time.
		ListGoals(ctx context.Context, ownerID string) ([]core.SavingGoal, error)
		InsertGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error)
		UpdateGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error)
		DeleteGoal(ctx context.Context, id string) error
	}

	PantryStore interface {
		ListPantryItems(ctx context.Context, ownerID string) ([]core.PantryItem, error)
		InsertPantryItem(ctx context.Context, item core.PantryItem) (core.PantryItem, error)
		DeletePantryItem(ctx context.Context, id string) error
	}

	ProfileStore interface {
		// GetProfile returns ErrNotFound for users that never saved a
		// budget; callers seed defaults in that case.
		GetProfile(ctx context.Context, userID string) (core.BudgetProfile, error)
		UpsertProfile(ctx context.Context, p core.BudgetProfile) (core.BudgetProfile, error)
	}

	FamilyStore interface {
		// ConnectedLink returns the connected link the user is either side
		// of, or nil when there is none.
		ConnectedLink(ctx context.Context, userID string) (*core.FamilyLink, error)
		PendingLinksTo(ctx context.Context, userID string) ([]core.FamilyLink, error)
		PendingLinksFrom(ctx context.Context, userID string) ([]core.FamilyLink, error)
		InsertLink(ctx context.Context, l core.FamilyLink) (core.FamilyLink, error)
		SetLinkStatus(ctx context.Context, id string, status core.LinkStatus) error
		DeleteLink(ctx context.Context, id string) error
	}

	UserStore interface {
		GetUser(ctx context.Context, id string) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
	}
)

// Store is the full row-store surface the app is wired against.
type Store interface {
	ExpenseStore
	ShoppingStore
	GoalStore
	PantryStore
	ProfileStore
	FamilyStore
	UserStore

	Close() error
}
