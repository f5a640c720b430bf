package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"goighem/internal/core"
	"goighem/internal/family"
	"goighem/internal/session"
	"goighem/internal/store"
	"goighem/internal/store/memory"
	"goighem/internal/sync"
)

type fixture struct {
	mem    *memory.Store
	ctrl   *Controller
	fam    *family.Service
	syncer *sync.Syncer
	user   core.User
	friend core.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	u, err := mem.CreateUser(ctx, core.User{Email: "may@example.com", DisplayName: "Mây"}, "hash")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	f, err := mem.CreateUser(ctx, core.User{Email: "binh@example.com", DisplayName: "Bình"}, "hash")
	if err != nil {
		t.Fatalf("seed friend: %v", err)
	}
	fam := family.NewService(mem, mem, nil)
	syncer := sync.New(mem, fam, nil)
	ctrl := NewController(mem, syncer, fam, nil, nil)
	if _, err := syncer.Sync(ctx, u.ID); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	return &fixture{mem: mem, ctrl: ctrl, fam: fam, syncer: syncer, user: u, friend: f}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	link, err := f.fam.Request(ctx, f.user.ID, f.friend.Email)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if err := f.fam.Accept(ctx, f.friend.ID, link.ID); err != nil {
		t.Fatalf("accept link: %v", err)
	}
	if _, err := f.syncer.Sync(ctx, f.user.ID); err != nil {
		t.Fatalf("resync: %v", err)
	}
}

func TestAddExpenseSplicesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(50000), core.CategoryFood, "bữa sáng", time.Time{})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if e.ID == "" || e.OccurredAt.IsZero() {
		t.Fatalf("incomplete canonical record: %+v", e)
	}
	if e.FamilyShared {
		t.Fatal("personal mode must not mark expenses shared")
	}

	snap := f.ctrl.Snapshot()
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != e.ID {
		t.Fatalf("snapshot not reconciled: %+v", snap.Expenses)
	}
}

func TestAddExpenseFamilyModeMarksShared(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
		t.Fatalf("set family mode: %v", err)
	}

	e, err := f.ctrl.AddExpense(context.Background(), f.user.ID, core.VND(30000), core.CategoryFood, "", time.Time{})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	if !e.FamilyShared {
		t.Fatal("family mode must mark the expense shared")
	}
}

func TestAddExpenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(0), core.CategoryFood, "", time.Time{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(10000), "  ", "", time.Time{}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("blank category: got %v", err)
	}
	if len(f.ctrl.Snapshot().Expenses) != 0 {
		t.Fatal("failed validation must not touch local state")
	}
}

func TestDeleteExpenseNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(50000), core.CategoryFood, "", time.Time{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := f.ctrl.DeleteExpense(ctx, f.user.ID, e.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed delete: got %v", err)
	}
	if len(f.ctrl.Snapshot().Expenses) != 1 {
		t.Fatal("unconfirmed delete must not remove anything")
	}

	if err := f.ctrl.DeleteExpense(ctx, f.user.ID, e.ID, true); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if len(f.ctrl.Snapshot().Expenses) != 0 {
		t.Fatal("expense not removed from snapshot")
	}
}

func TestContribute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, err := f.ctrl.CreateGoal(ctx, f.user.ID, core.SavingGoal{Name: "Mua xe đạp", Target: core.VND(2_000_000)})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	updated, err := f.ctrl.Contribute(ctx, f.user.ID, g.ID, core.VND(450_000))
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if updated.Saved != core.VND(450_000) {
		t.Fatalf("saved = %v", updated.Saved)
	}
	if updated.Progress() != 22 {
		t.Fatalf("progress = %d, want 22", updated.Progress())
	}

	if _, err := f.ctrl.Contribute(ctx, f.user.ID, g.ID, core.VND(0)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("non-positive contribution: got %v", err)
	}
	if _, err := f.ctrl.Contribute(ctx, f.user.ID, "missing", core.VND(1000)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown goal: got %v", err)
	}
}

func TestContributionsAccumulate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, err := f.ctrl.CreateGoal(ctx, f.user.ID, core.SavingGoal{Name: "Quỹ Tết", Target: core.VND(100_000)})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	// Past the target is allowed; progress caps only for display.
	if _, err := f.ctrl.Contribute(ctx, f.user.ID, g.ID, core.VND(100_000)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	updated, err := f.ctrl.Contribute(ctx, f.user.ID, g.ID, core.VND(50_000))
	if err != nil {
		t.Fatalf("second contribute: %v", err)
	}
	if updated.Saved != core.VND(150_000) {
		t.Fatalf("saved = %v", updated.Saved)
	}
	if updated.Progress() != 100 {
		t.Fatalf("capped progress = %d", updated.Progress())
	}
	if updated.Ratio() <= 1 {
		t.Fatalf("raw ratio should exceed 1, got %v", updated.Ratio())
	}
}

func TestCompleteQuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ctrl.CompleteQuest(ctx, f.user.ID, "skip-milk-tea"); !errors.Is(err, ErrNoGoal) {
		t.Fatalf("quest with no goal: got %v", err)
	}

	older, err := f.ctrl.CreateGoal(ctx, f.user.ID, core.SavingGoal{
		Name: "Quỹ cũ", Target: core.VND(1_000_000), CreatedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("create older goal: %v", err)
	}
	newest, err := f.ctrl.CreateGoal(ctx, f.user.ID, core.SavingGoal{
		Name: "Quỹ mới", Target: core.VND(1_000_000),
	})
	if err != nil {
		t.Fatalf("create newest goal: %v", err)
	}

	got, err := f.ctrl.CompleteQuest(ctx, f.user.ID, "skip-milk-tea")
	if err != nil {
		t.Fatalf("complete quest: %v", err)
	}
	if got.ID != newest.ID {
		t.Fatalf("quest contributed to %q, want newest goal %q", got.ID, newest.ID)
	}
	if got.Saved != core.VND(30_000) {
		t.Fatalf("saved = %v, want quest amount 30000", got.Saved)
	}
	if olderNow := findGoal(f.ctrl.Snapshot().Goals, older.ID); olderNow == nil || olderNow.Saved.Amount != 0 {
		t.Fatalf("older goal must stay untouched: %+v", olderNow)
	}

	if _, err := f.ctrl.CompleteQuest(ctx, f.user.ID, "no-such-quest"); !errors.Is(err, ErrUnknownQuest) {
		t.Fatalf("unknown quest: got %v", err)
	}
}

func findGoal(goals []core.SavingGoal, id string) *core.SavingGoal {
	for _, g := range goals {
		if g.ID == id {
			return &g
		}
	}
	return nil
}

func TestShoppingToggleAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.ctrl.AddShoppingItem(ctx, f.user.ID, "rau muống")
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	toggled, err := f.ctrl.ToggleShoppingItem(ctx, f.user.ID, item.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed {
		t.Fatal("item should be completed after toggle")
	}
	back, err := f.ctrl.ToggleShoppingItem(ctx, f.user.ID, item.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if back.Completed {
		t.Fatal("second toggle should uncomplete")
	}

	if err := f.ctrl.DeleteShoppingItem(ctx, f.user.ID, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.ctrl.Snapshot().Shopping) != 0 {
		t.Fatal("item not removed from snapshot")
	}
}

// insertLimitStore fails shopping inserts after a set number of successes.
type insertLimitStore struct {
	store.Store
	remaining int
}

func (s *insertLimitStore) InsertShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	if s.remaining <= 0 {
		return core.ShoppingItem{}, errors.New("permission denied")
	}
	s.remaining--
	return s.Store.InsertShoppingItem(ctx, item)
}

func TestAddIngredientsPartialFailure(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	u, err := mem.CreateUser(ctx, core.User{Email: "may@example.com", DisplayName: "Mây"}, "hash")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	limited := &insertLimitStore{Store: mem, remaining: 2}
	fam := family.NewService(mem, mem, nil)
	syncer := sync.New(limited, fam, nil)
	ctrl := NewController(limited, syncer, fam, nil, nil)
	if _, err := syncer.Sync(ctx, u.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	added, err := ctrl.AddIngredients(ctx, u.ID, []string{"thịt ba chỉ", "hành lá", "nước mắm"})
	if err == nil {
		t.Fatal("expected the third insert to fail")
	}
	if len(added) != 2 {
		t.Fatalf("inserted items must survive partial failure: %+v", added)
	}
	if len(ctrl.Snapshot().Shopping) != 2 {
		t.Fatalf("snapshot should hold the two inserted items: %+v", ctrl.Snapshot().Shopping)
	}
}

func TestUpdateBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.ctrl.UpdateBudget(ctx, f.user.ID, core.BudgetProfile{
		MonthlyBudget: core.VND(6_000_000),
		WeeklyBudget:  core.VND(1_500_000),
		Theme:         core.ThemeMint,
	})
	if err != nil {
		t.Fatalf("update budget: %v", err)
	}
	if saved.UserID != f.user.ID {
		t.Fatalf("profile user = %q", saved.UserID)
	}
	if got := f.ctrl.Snapshot().Profile; got.MonthlyBudget != core.VND(6_000_000) || got.Theme != core.ThemeMint {
		t.Fatalf("snapshot profile not reconciled: %+v", got)
	}

	if _, err := f.ctrl.UpdateBudget(ctx, f.user.ID, core.BudgetProfile{Theme: "neon"}); err == nil {
		t.Fatal("unknown theme must be rejected")
	}
}

func TestPantryCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.ctrl.AddPantryItem(ctx, f.user.ID, core.PantryItem{
		Name: "sữa tươi", Quantity: "1 hộp", ExpiresAt: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("add pantry item: %v", err)
	}
	if len(f.ctrl.Snapshot().Pantry) != 1 {
		t.Fatal("pantry item missing from snapshot")
	}

	if err := f.ctrl.RemovePantryItem(ctx, f.user.ID, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f.ctrl.Snapshot().Pantry) != 0 {
		t.Fatal("pantry item not removed from snapshot")
	}
}

func TestWalletModeRequiresLink(t *testing.T) {
	f := newFixture(t)

	if err := f.ctrl.SetWalletMode(core.WalletFamily); !errors.Is(err, ErrFamilyRequired) {
		t.Fatalf("family mode without link: got %v", err)
	}
	f.connect(t)
	if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
		t.Fatalf("family mode with link: %v", err)
	}
	if f.ctrl.WalletMode() != core.WalletFamily {
		t.Fatalf("mode = %q", f.ctrl.WalletMode())
	}
}

func TestUnlinkResetsWalletAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t)

	// Partner logs a shared expense; it becomes visible after sync.
	if _, err := f.mem.InsertExpense(ctx, core.Expense{
		OwnerID: f.friend.ID, Amount: core.VND(80000), Category: core.CategoryFood,
		OccurredAt: time.Now(), FamilyShared: true,
	}); err != nil {
		t.Fatalf("partner expense: %v", err)
	}
	if _, err := f.syncer.Sync(ctx, f.user.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
		t.Fatalf("set family mode: %v", err)
	}
	if len(f.ctrl.Snapshot().Expenses) != 1 {
		t.Fatalf("shared expense should be visible: %+v", f.ctrl.Snapshot().Expenses)
	}

	if err := f.ctrl.Unlink(ctx, f.user.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed unlink: got %v", err)
	}
	if err := f.ctrl.Unlink(ctx, f.user.ID, true); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	if f.ctrl.WalletMode() != core.WalletPersonal {
		t.Fatal("wallet mode must collapse to personal after unlink")
	}
	for _, e := range f.ctrl.Snapshot().Expenses {
		if e.OwnerID == f.friend.ID {
			t.Fatalf("partner expense still visible after unlink: %+v", e)
		}
	}
}

func TestLinkCommandsRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link, err := f.ctrl.RequestLink(ctx, f.user.ID, f.friend.Email)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if err := f.ctrl.AcceptLink(ctx, f.friend.ID, link.ID); err != nil {
		t.Fatalf("accept link: %v", err)
	}
	// The requester's snapshot now carries the connected state.
	if _, err := f.syncer.Sync(ctx, f.user.ID); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if !f.ctrl.Snapshot().Family.Connected() {
		t.Fatalf("family state = %+v", f.ctrl.Snapshot().Family)
	}
}

func TestSignOutCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t)
	if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if _, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(10000), core.CategoryFood, "", time.Time{}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	f.ctrl.SignOutCleanup()
	if f.ctrl.WalletMode() != core.WalletPersonal {
		t.Fatal("wallet mode must reset on sign-out")
	}
	snap := f.ctrl.Snapshot()
	if len(snap.Expenses) != 0 || snap.UserID != "" {
		t.Fatalf("snapshot must be empty after sign-out: %+v", snap)
	}
}

func TestWatchReactsToSessionEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t)
	if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if _, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(10000), core.CategoryFood, "", time.Time{}); err != nil {
		t.Fatalf("add expense: %v", err)
	}

	events := make(chan session.Event)
	done := make(chan struct{})
	go func() {
		f.ctrl.Watch(ctx, events)
		close(done)
	}()

	// A sign-out event clears everything the previous user loaded.
	events <- session.Event{Session: nil}
	// A sign-in event loads the new user's data.
	events <- session.Event{Session: &session.Session{UserID: f.user.ID}}
	close(events)
	<-done

	snap := f.ctrl.Snapshot()
	if snap.UserID != f.user.ID || len(snap.Expenses) != 1 {
		t.Fatalf("snapshot not reloaded after sign-in event: %+v", snap)
	}
	if f.ctrl.WalletMode() != core.WalletPersonal {
		t.Fatal("wallet mode must reset on the sign-out event")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan session.Event)
	done := make(chan struct{})
	go func() {
		f.ctrl.Watch(ctx, events)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after context cancellation")
	}
}

func TestWalletModeConcurrentAccess(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := f.ctrl.SetWalletMode(core.WalletFamily); err != nil {
				t.Errorf("set family mode: %v", err)
				return
			}
			if err := f.ctrl.SetWalletMode(core.WalletPersonal); err != nil {
				t.Errorf("set personal mode: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if _, err := f.ctrl.AddExpense(ctx, f.user.ID, core.VND(1000), core.CategoryFood, "", time.Time{}); err != nil {
			t.Fatalf("add expense: %v", err)
		}
		_ = f.ctrl.WalletMode()
	}
	<-done

	if mode := f.ctrl.WalletMode(); mode != core.WalletPersonal && mode != core.WalletFamily {
		t.Fatalf("mode corrupted: %q", mode)
	}
}
