package core

import (
	"testing"
	"time"
)

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Amount:     VND(50_000),
		Category:   CategoryFood,
		Note:       "Rau củ sáng nay",
		OccurredAt: time.Now(),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Amount: VND(0), Category: CategoryFood},
		{Amount: Money{Amount: -100}, Category: CategoryFood},
		{Amount: VND(100), Category: "   "},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSavingGoalValidate(t *testing.T) {
	good := SavingGoal{Name: "Túi xách Chanel 👜", Target: VND(2_000_000)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		g    SavingGoal
		want error
	}{
		{SavingGoal{Name: "", Target: VND(100)}, ErrEmptyName},
		{SavingGoal{Name: "x", Target: VND(0)}, ErrTargetNotSet},
		{SavingGoal{Name: "x", Target: VND(100), Saved: Money{Amount: -1}}, ErrNegativeSaved},
	}
	for i, tc := range cases {
		if err := tc.g.Validate(); err != tc.want {
			t.Fatalf("case %d: want %v, got %v", i, tc.want, err)
		}
	}
}

func TestFamilyLinkSelfReject(t *testing.T) {
	l := FamilyLink{RequesterID: "u1", RecipientID: "u1"}
	if err := l.Validate(); err != ErrSelfLink {
		t.Fatalf("want ErrSelfLink, got %v", err)
	}
	l.RecipientID = "u2"
	if err := l.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestFamilyLinkOther(t *testing.T) {
	l := FamilyLink{RequesterID: "a", RecipientID: "b"}
	if got := l.Other("a"); got != "b" {
		t.Fatalf("want b, got %s", got)
	}
	if got := l.Other("b"); got != "a" {
		t.Fatalf("want a, got %s", got)
	}
	if got := l.Other("c"); got != "" {
		t.Fatalf("want empty for outsider, got %s", got)
	}
}
