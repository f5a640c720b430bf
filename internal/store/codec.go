package store

import (
	"encoding/json"
	"fmt"
	"time"

	"goighem/internal/core"
)

// The row store speaks snake_case; older, partially migrated rows may still
// carry camelCase names. Decoding prefers the storage-native name and falls
// back to the in-memory one, so both generations of rows stay readable.
// Nothing outside this file sees storage field names.

type rawRecord map[string]json.RawMessage

func (r rawRecord) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

func (r rawRecord) num(keys ...string) int64 {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return int64(f)
		}
		// Some exports quote numerics.
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			var f2 float64
			if _, err := fmt.Sscanf(s, "%f", &f2); err == nil {
				return int64(f2)
			}
		}
	}
	return 0
}

func (r rawRecord) boolean(keys ...string) bool {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	}
	return false
}

func (r rawRecord) timestamp(keys ...string) time.Time {
	s := r.str(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DecodeExpense maps one stored expense row to the in-memory model.
func DecodeExpense(data []byte) (core.Expense, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.Expense{}, fmt.Errorf("decode expense row: %w", err)
	}
	return core.Expense{
		ID:           r.str("id"),
		OwnerID:      r.str("owner_id", "ownerId"),
		Amount:       core.Money{Amount: r.num("amount")},
		Category:     r.str("category"),
		Note:         r.str("note"),
		OccurredAt:   r.timestamp("occurred_at", "occurredAt", "date"),
		FamilyShared: r.boolean("is_family_shared", "isFamilyShared", "isFamily"),
	}, nil
}

// EncodeExpense produces the storage-native row for writes.
func EncodeExpense(e core.Expense) map[string]any {
	return map[string]any{
		"id":               e.ID,
		"owner_id":         e.OwnerID,
		"amount":           e.Amount.Amount,
		"category":         e.Category,
		"note":             e.Note,
		"occurred_at":      e.OccurredAt.UTC().Format(time.RFC3339),
		"is_family_shared": e.FamilyShared,
	}
}

func DecodeGoal(data []byte) (core.SavingGoal, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.SavingGoal{}, fmt.Errorf("decode goal row: %w", err)
	}
	return core.SavingGoal{
		ID:        r.str("id"),
		OwnerID:   r.str("owner_id", "ownerId"),
		Name:      r.str("name"),
		Target:    core.Money{Amount: r.num("target_amount", "targetAmount")},
		Saved:     core.Money{Amount: r.num("saved_amount", "savedAmount")},
		Icon:      r.str("icon"),
		ColorTag:  r.str("color_tag", "colorTag"),
		CreatedAt: r.timestamp("created_at", "createdAt"),
	}, nil
}

func EncodeGoal(g core.SavingGoal) map[string]any {
	return map[string]any{
		"id":            g.ID,
		"owner_id":      g.OwnerID,
		"name":          g.Name,
		"target_amount": g.Target.Amount,
		"saved_amount":  g.Saved.Amount,
		"icon":          g.Icon,
		"color_tag":     g.ColorTag,
		"created_at":    g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func DecodeShoppingItem(data []byte) (core.ShoppingItem, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("decode shopping row: %w", err)
	}
	return core.ShoppingItem{
		ID:        r.str("id"),
		OwnerID:   r.str("owner_id", "ownerId"),
		Name:      r.str("name"),
		Completed: r.boolean("completed"),
		CreatedAt: r.timestamp("created_at", "createdAt"),
	}, nil
}

func EncodeShoppingItem(i core.ShoppingItem) map[string]any {
	return map[string]any{
		"id":         i.ID,
		"owner_id":   i.OwnerID,
		"name":       i.Name,
		"completed":  i.Completed,
		"created_at": i.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func DecodePantryItem(data []byte) (core.PantryItem, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.PantryItem{}, fmt.Errorf("decode pantry row: %w", err)
	}
	return core.PantryItem{
		ID:        r.str("id"),
		OwnerID:   r.str("owner_id", "ownerId"),
		Name:      r.str("name"),
		Quantity:  r.str("quantity"),
		ExpiresAt: r.timestamp("expires_at", "expiresAt", "expiryDate"),
	}, nil
}

func EncodePantryItem(p core.PantryItem) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"owner_id":   p.OwnerID,
		"name":       p.Name,
		"quantity":   p.Quantity,
		"expires_at": p.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func DecodeProfile(data []byte) (core.BudgetProfile, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.BudgetProfile{}, fmt.Errorf("decode profile row: %w", err)
	}
	return core.BudgetProfile{
		UserID:        r.str("user_id", "userId", "id"),
		MonthlyBudget: core.Money{Amount: r.num("monthly_budget", "monthlyBudget")},
		WeeklyBudget:  core.Money{Amount: r.num("weekly_budget", "weeklyBudget")},
		FamilyBudget:  core.Money{Amount: r.num("family_budget", "familyBudget")},
		Theme:         core.Theme(r.str("theme")),
	}, nil
}

func EncodeProfile(p core.BudgetProfile) map[string]any {
	return map[string]any{
		"user_id":        p.UserID,
		"monthly_budget": p.MonthlyBudget.Amount,
		"weekly_budget":  p.WeeklyBudget.Amount,
		"family_budget":  p.FamilyBudget.Amount,
		"theme":          string(p.Theme),
	}
}

func DecodeFamilyLink(data []byte) (core.FamilyLink, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.FamilyLink{}, fmt.Errorf("decode family link row: %w", err)
	}
	return core.FamilyLink{
		ID:          r.str("id"),
		RequesterID: r.str("requester_id", "requesterId"),
		RecipientID: r.str("recipient_id", "recipientId"),
		Status:      core.LinkStatus(r.str("status")),
		CreatedAt:   r.timestamp("created_at", "createdAt"),
	}, nil
}

func EncodeFamilyLink(l core.FamilyLink) map[string]any {
	return map[string]any{
		"id":           l.ID,
		"requester_id": l.RequesterID,
		"recipient_id": l.RecipientID,
		"status":       string(l.Status),
		"created_at":   l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func DecodeUser(data []byte) (core.User, error) {
	var r rawRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return core.User{}, fmt.Errorf("decode user row: %w", err)
	}
	return core.User{
		ID:          r.str("user_id", "userId", "id"),
		Email:       r.str("email"),
		DisplayName: r.str("display_name", "displayName"),
	}, nil
}
