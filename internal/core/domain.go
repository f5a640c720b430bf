package core

import (
	"errors"
	"strings"
	"time"
)

const (
	WalletPersonal WalletMode = "personal"
	WalletFamily   WalletMode = "family"
)

const (
	LinkPending   LinkStatus = "pending"
	LinkConnected LinkStatus = "connected"
)

type (
	// WalletMode selects which expenses are visible and how new ones are
	// attributed: the user's private wallet or the shared family wallet.
	WalletMode string

	// LinkStatus is the persisted state of a family link row.
	LinkStatus string

	// User is the identity resolved by the session gate. Immutable for the
	// lifetime of a session.
	User struct {
		ID          string
		Email       string
		DisplayName string
	}

	Expense struct {
		ID           string
		OwnerID      string
		Amount       Money
		Category     string
		Note         string
		OccurredAt   time.Time
		FamilyShared bool
	}

	SavingGoal struct {
		ID        string
		OwnerID   string
		Name      string
		Target    Money
		Saved     Money
		Icon      string
		ColorTag  string
		CreatedAt time.Time
	}

	ShoppingItem struct {
		ID        string
		OwnerID   string
		Name      string
		Completed bool
		CreatedAt time.Time
	}

	// PantryItem tracks food at home with an expiry date so the app can warn
	// before it goes bad.
	PantryItem struct {
		ID        string
		OwnerID   string
		Name      string
		Quantity  string
		ExpiresAt time.Time
	}

	// FamilyLink connects two accounts. A pending link is directional
	// (requester waits for the recipient); once accepted it is symmetric and
	// either side may delete it.
	FamilyLink struct {
		ID          string
		RequesterID string
		RecipientID string
		Status      LinkStatus
		CreatedAt   time.Time
	}

	// BudgetProfile is the per-user budget row, one per account.
	BudgetProfile struct {
		UserID        string
		MonthlyBudget Money
		WeeklyBudget  Money
		FamilyBudget  Money
		Theme         Theme
	}
)

// Default budgets seeded for a fresh profile, in VND.
var (
	DefaultMonthlyBudget = Money{Amount: 5_000_000}
	DefaultWeeklyBudget  = Money{Amount: 1_250_000}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty name")
	ErrTargetNotSet  = errors.New("target amount must be positive")
	ErrNegativeSaved = errors.New("saved amount cannot be negative")
	ErrSelfLink      = errors.New("cannot link a family wallet to yourself")
	ErrNoteTooLong   = errors.New("note too long (max 200 characters)")
)

// Validate checks an expense as entered by the user. Amounts must be
// positive here; refund rows (amount <= 0) only ever arrive via sync and are
// excluded from spend totals by the aggregation functions.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Note) > 200 {
		return ErrNoteTooLong
	}
	return nil
}

func (g SavingGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.Amount <= 0 {
		return ErrTargetNotSet
	}
	if g.Saved.Amount < 0 {
		return ErrNegativeSaved
	}
	return nil
}

func (i ShoppingItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p PantryItem) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate rejects a self-link before any write is issued.
func (l FamilyLink) Validate() error {
	if l.RequesterID == l.RecipientID {
		return ErrSelfLink
	}
	return nil
}

// Other returns the partner side of the link for the given user, or "" if the
// user is not part of the link.
func (l FamilyLink) Other(userID string) string {
	switch userID {
	case l.RequesterID:
		return l.RecipientID
	case l.RecipientID:
		return l.RequesterID
	}
	return ""
}

// Involves reports whether the user is either side of the link.
func (l FamilyLink) Involves(userID string) bool {
	return l.RequesterID == userID || l.RecipientID == userID
}
