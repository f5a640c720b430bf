package store

import (
	"testing"
	"time"

	"goighem/internal/core"
)

func coreExpenseFixture() core.Expense {
	return core.Expense{
		ID:           "e1",
		OwnerID:      "u1",
		Amount:       core.VND(50_000),
		Category:     core.CategoryFood,
		Note:         "Rau củ",
		OccurredAt:   time.Date(2025, 3, 15, 5, 0, 0, 0, time.UTC),
		FamilyShared: true,
	}
}

func TestDecodeExpensePrefersNativeNames(t *testing.T) {
	row := []byte(`{
		"id": "e1",
		"owner_id": "u1",
		"ownerId": "stale-value",
		"amount": 50000,
		"category": "Thực phẩm",
		"note": "Rau củ",
		"occurred_at": "2025-03-15T05:00:00Z",
		"is_family_shared": true
	}`)
	e, err := DecodeExpense(row)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.OwnerID != "u1" {
		t.Fatalf("native name must win, got %s", e.OwnerID)
	}
	if e.Amount.Amount != 50_000 || !e.FamilyShared {
		t.Fatalf("unexpected decode: %+v", e)
	}
	want := time.Date(2025, 3, 15, 5, 0, 0, 0, time.UTC)
	if !e.OccurredAt.Equal(want) {
		t.Fatalf("occurred_at: want %v, got %v", want, e.OccurredAt)
	}
}

func TestDecodeExpenseLegacyFallback(t *testing.T) {
	// A partially migrated row still carries camelCase names.
	row := []byte(`{
		"id": "e2",
		"ownerId": "u2",
		"amount": 30000,
		"category": "Khác",
		"date": "2025-03-14T00:00:00Z",
		"isFamily": true
	}`)
	e, err := DecodeExpense(row)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.OwnerID != "u2" || !e.FamilyShared || e.OccurredAt.IsZero() {
		t.Fatalf("legacy fallback failed: %+v", e)
	}
}

func TestDecodeGoalBothShapes(t *testing.T) {
	native, err := DecodeGoal([]byte(`{"id":"g1","owner_id":"u1","name":"Túi xách","target_amount":2000000,"saved_amount":450000}`))
	if err != nil {
		t.Fatalf("decode native: %v", err)
	}
	legacy, err := DecodeGoal([]byte(`{"id":"g1","ownerId":"u1","name":"Túi xách","targetAmount":2000000,"savedAmount":450000}`))
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if native.Target != legacy.Target || native.Saved != legacy.Saved {
		t.Fatalf("shapes disagree: %+v vs %+v", native, legacy)
	}
}

func TestDecodeMalformedRow(t *testing.T) {
	if _, err := DecodeExpense([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed row")
	}
	// Missing fields decode to zero values rather than failing.
	e, err := DecodeExpense([]byte(`{}`))
	if err != nil {
		t.Fatalf("empty object: %v", err)
	}
	if e.ID != "" || e.Amount.Amount != 0 {
		t.Fatalf("want zero expense, got %+v", e)
	}
}

func TestEncodeDecodeExpense(t *testing.T) {
	// Encoded rows use storage-native names only.
	enc := EncodeExpense(coreExpenseFixture())
	for _, legacy := range []string{"ownerId", "isFamily", "occurredAt"} {
		if _, ok := enc[legacy]; ok {
			t.Fatalf("encoded row leaks legacy name %s", legacy)
		}
	}
	if enc["owner_id"] != "u1" || enc["is_family_shared"] != true {
		t.Fatalf("unexpected encoding: %+v", enc)
	}
}
