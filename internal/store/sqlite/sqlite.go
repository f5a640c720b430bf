// Package sqlite is the local store adapter, used for the offline/dev
// backend where the hosted row store is not configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"goighem/internal/core"
	"goighem/internal/store"
)

// Store is a sqlite-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) ListExpenses(ctx context.Context, ownerIDs []string) ([]core.Expense, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ownerIDs)), ",")
	args := make([]any, len(ownerIDs))
	for i, id := range ownerIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, amount, category, note, occurred_at, is_family_shared
		FROM expenses
		WHERE owner_id IN (`+placeholders+`)
		ORDER BY occurred_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e          core.Expense
			occurredAt string
			shared     int
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Amount.Amount, &e.Category, &e.Note, &occurredAt, &shared); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.OccurredAt = parseTime(occurredAt)
		e.FamilyShared = shared != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, owner_id, amount, category, note, occurred_at, is_family_shared)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.Amount, e.Category, e.Note, formatTime(e.OccurredAt), boolInt(e.FamilyShared))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount = ?, category = ?, note = ?, occurred_at = ?, is_family_shared = ?
		WHERE id = ?`,
		e.Amount.Amount, e.Category, e.Note, formatTime(e.OccurredAt), boolInt(e.FamilyShared), e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

func (s *Store) ListShoppingItems(ctx context.Context, ownerID string) ([]core.ShoppingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, completed, created_at
		FROM shopping_list
		WHERE owner_id = ?
		ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var out []core.ShoppingItem
	for rows.Next() {
		var (
			it        core.ShoppingItem
			completed int
			createdAt string
		)
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Name, &completed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		it.Completed = completed != 0
		it.CreatedAt = parseTime(createdAt)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) InsertShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shopping_list (id, owner_id, name, completed, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, boolInt(item.Completed), formatTime(item.CreatedAt))
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("insert shopping item: %w", err)
	}
	return item, nil
}

func (s *Store) UpdateShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shopping_list SET name = ?, completed = ? WHERE id = ?`,
		item.Name, boolInt(item.Completed), item.ID)
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("update shopping item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ShoppingItem{}, store.ErrNotFound
	}
	return item, nil
}

func (s *Store) DeleteShoppingItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "shopping_list", id)
}

func (s *Store) ListGoals(ctx context.Context, ownerID string) ([]core.SavingGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, target_amount, saved_amount, icon, color_tag, created_at
		FROM saving_goals
		WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingGoal
	for rows.Next() {
		var (
			g         core.SavingGoal
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Target.Amount, &g.Saved.Amount, &g.Icon, &g.ColorTag, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) InsertGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saving_goals (id, owner_id, name, target_amount, saved_amount, icon, color_tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, g.Target.Amount, g.Saved.Amount, g.Icon, g.ColorTag, formatTime(g.CreatedAt))
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE saving_goals
		SET name = ?, target_amount = ?, saved_amount = ?, icon = ?, color_tag = ?
		WHERE id = ?`,
		g.Name, g.Target.Amount, g.Saved.Amount, g.Icon, g.ColorTag, g.ID)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.SavingGoal{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "saving_goals", id)
}

func (s *Store) ListPantryItems(ctx context.Context, ownerID string) ([]core.PantryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, quantity, expires_at
		FROM pantry_items
		WHERE owner_id = ?
		ORDER BY expires_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pantry items: %w", err)
	}
	defer rows.Close()

	var out []core.PantryItem
	for rows.Next() {
		var (
			p         core.PantryItem
			expiresAt string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Quantity, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		p.ExpiresAt = parseTime(expiresAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) InsertPantryItem(ctx context.Context, item core.PantryItem) (core.PantryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pantry_items (id, owner_id, name, quantity, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.Quantity, formatTime(item.ExpiresAt))
	if err != nil {
		return core.PantryItem{}, fmt.Errorf("insert pantry item: %w", err)
	}
	return item, nil
}

func (s *Store) DeletePantryItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "pantry_items", id)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (core.BudgetProfile, error) {
	var (
		p     core.BudgetProfile
		theme string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, monthly_budget, weekly_budget, family_budget, theme
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.MonthlyBudget.Amount, &p.WeeklyBudget.Amount, &p.FamilyBudget.Amount, &theme)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetProfile{}, store.ErrNotFound
	}
	if err != nil {
		return core.BudgetProfile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Theme = core.Theme(theme)
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p core.BudgetProfile) (core.BudgetProfile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, monthly_budget, weekly_budget, family_budget, theme)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_budget = excluded.monthly_budget,
			weekly_budget = excluded.weekly_budget,
			family_budget = excluded.family_budget,
			theme = excluded.theme`,
		p.UserID, p.MonthlyBudget.Amount, p.WeeklyBudget.Amount, p.FamilyBudget.Amount, string(p.Theme))
	if err != nil {
		return core.BudgetProfile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

func (s *Store) ConnectedLink(ctx context.Context, userID string) (*core.FamilyLink, error) {
	links, err := s.queryLinks(ctx, `
		SELECT id, requester_id, recipient_id, status, created_at
		FROM family_links
		WHERE status = 'connected' AND (requester_id = ? OR recipient_id = ?)
		LIMIT 1`, userID, userID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

func (s *Store) PendingLinksTo(ctx context.Context, userID string) ([]core.FamilyLink, error) {
	return s.queryLinks(ctx, `
		SELECT id, requester_id, recipient_id, status, created_at
		FROM family_links
		WHERE status = 'pending' AND recipient_id = ?
		ORDER BY created_at ASC`, userID)
}

func (s *Store) PendingLinksFrom(ctx context.Context, userID string) ([]core.FamilyLink, error) {
	return s.queryLinks(ctx, `
		SELECT id, requester_id, recipient_id, status, created_at
		FROM family_links
		WHERE status = 'pending' AND requester_id = ?
		ORDER BY created_at ASC`, userID)
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]core.FamilyLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query family links: %w", err)
	}
	defer rows.Close()

	var out []core.FamilyLink
	for rows.Next() {
		var (
			l         core.FamilyLink
			status    string
			createdAt string
		)
		if err := rows.Scan(&l.ID, &l.RequesterID, &l.RecipientID, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan family link: %w", err)
		}
		l.Status = core.LinkStatus(status)
		l.CreatedAt = parseTime(createdAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) InsertLink(ctx context.Context, l core.FamilyLink) (core.FamilyLink, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO family_links (id, requester_id, recipient_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.RequesterID, l.RecipientID, string(l.Status), formatTime(l.CreatedAt))
	if err != nil {
		return core.FamilyLink{}, fmt.Errorf("insert family link: %w", err)
	}
	return l, nil
}

func (s *Store) SetLinkStatus(ctx context.Context, id string, status core.LinkStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE family_links SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set link status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLink(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "family_links", id)
}

func (s *Store) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name FROM users WHERE email = ? COLLATE NOCASE`, strings.TrimSpace(email)).
		Scan(&u.ID, &u.Email, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// CreateUser registers an account for local auth.
func (s *Store) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES (?, ?, ?, ?)`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return core.User{}, store.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Credentials returns the user and stored password hash for an email.
func (s *Store) Credentials(ctx context.Context, email string) (core.User, string, error) {
	var (
		u    core.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash
		FROM users WHERE email = ? COLLATE NOCASE`, strings.TrimSpace(email)).
		Scan(&u.ID, &u.Email, &u.DisplayName, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", store.ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("lookup credentials: %w", err)
	}
	return u, hash, nil
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
