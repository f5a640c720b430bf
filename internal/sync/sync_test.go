package sync

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"goighem/internal/core"
	"goighem/internal/family"
	"goighem/internal/store"
	"goighem/internal/store/memory"
)

type fixture struct {
	mem    *memory.Store
	syncer *Syncer
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
	return &fixture{mem: mem, syncer: New(mem, fam, nil), user: u, friend: f}
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	fam := family.NewService(f.mem, f.mem, nil)
	link, err := fam.Request(ctx, f.user.ID, f.friend.Email)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if err := fam.Accept(ctx, f.friend.ID, link.ID); err != nil {
		t.Fatalf("accept link: %v", err)
	}
}

func (f *fixture) addExpense(t *testing.T, ownerID string, amount int64, shared bool) core.Expense {
	t.Helper()
	e, err := f.mem.InsertExpense(context.Background(), core.Expense{
		OwnerID:      ownerID,
		Amount:       core.VND(amount),
		Category:     core.CategoryFood,
		OccurredAt:   time.Now(),
		FamilyShared: shared,
	})
	if err != nil {
		t.Fatalf("insert expense: %v", err)
	}
	return e
}

func TestSyncIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.user.ID, 50000, false)
	f.addExpense(t, f.user.ID, 20000, false)

	first, err := f.syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	second, err := f.syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if !reflect.DeepEqual(first.Expenses, second.Expenses) {
		t.Fatalf("expenses differ across syncs:\n%+v\n%+v", first.Expenses, second.Expenses)
	}
	if !reflect.DeepEqual(first.Profile, second.Profile) {
		t.Fatalf("profiles differ across syncs")
	}
}

func TestVisibilityInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.addExpense(t, f.user.ID, 50000, false)
	partnerShared := f.addExpense(t, f.friend.ID, 30000, true)
	partnerPrivate := f.addExpense(t, f.friend.ID, 99000, false)

	// Not connected yet: only own expenses visible.
	snap, err := f.syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].ID != own.ID {
		t.Fatalf("before linking: %+v", snap.Expenses)
	}

	f.connect(t)
	snap, err = f.syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("sync after link: %v", err)
	}
	ids := map[string]bool{}
	for _, e := range snap.Expenses {
		ids[e.ID] = true
	}
	if !ids[own.ID] || !ids[partnerShared.ID] {
		t.Fatalf("own and shared partner expenses must be visible: %+v", ids)
	}
	if ids[partnerPrivate.ID] {
		t.Fatal("partner's private expense leaked into the snapshot")
	}
}

func TestThirdPartySharedNeverVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger, err := f.mem.CreateUser(ctx, core.User{Email: "chi@example.com", DisplayName: "Chi"}, "hash")
	if err != nil {
		t.Fatalf("seed stranger: %v", err)
	}
	f.addExpense(t, stranger.ID, 70000, true)
	f.connect(t)

	snap, err := f.syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	for _, e := range snap.Expenses {
		if e.OwnerID == stranger.ID {
			t.Fatalf("shared expense from a non-partner appeared: %+v", e)
		}
	}
}

func TestProfileDefaultsForFreshUser(t *testing.T) {
	f := newFixture(t)
	snap, err := f.syncer.Sync(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if snap.Profile.MonthlyBudget != core.DefaultMonthlyBudget {
		t.Fatalf("monthly budget = %v", snap.Profile.MonthlyBudget)
	}
	if snap.Profile.WeeklyBudget != core.DefaultWeeklyBudget {
		t.Fatalf("weekly budget = %v", snap.Profile.WeeklyBudget)
	}
	if snap.Profile.Theme != core.ThemePink {
		t.Fatalf("theme = %v", snap.Profile.Theme)
	}
}

func TestClearDropsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.user.ID, 50000, false)
	if _, err := f.syncer.Sync(ctx, f.user.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	f.syncer.Clear()
	snap := f.syncer.Snapshot()
	if snap.UserID != "" || len(snap.Expenses) != 0 || len(snap.Goals) != 0 {
		t.Fatalf("snapshot not cleared: %+v", snap)
	}
}

// flakyStore fails expense listing on demand while the rest of the store
// keeps working.
type flakyStore struct {
	store.Store
	failExpenses bool
}

func (f *flakyStore) ListExpenses(ctx context.Context, ownerIDs []string) ([]core.Expense, error) {
	if f.failExpenses {
		return nil, errors.New("connection reset")
	}
	return f.Store.ListExpenses(ctx, ownerIDs)
}

func TestFailedCollectionKeepsPreviousValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.user.ID, 50000, false)

	flaky := &flakyStore{Store: f.mem}
	fam := family.NewService(f.mem, f.mem, nil)
	syncer := New(flaky, fam, nil)

	first, err := syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if len(first.Expenses) != 1 {
		t.Fatalf("expected one expense, got %+v", first.Expenses)
	}

	flaky.failExpenses = true
	second, err := syncer.Sync(ctx, f.user.ID)
	if err == nil {
		t.Fatal("expected an error from the failing fetch")
	}
	if !reflect.DeepEqual(second.Expenses, first.Expenses) {
		t.Fatalf("failed fetch must keep previous expenses: %+v", second.Expenses)
	}
	// The healthy collections still refreshed.
	if second.Profile.UserID != f.user.ID {
		t.Fatalf("profile not refreshed: %+v", second.Profile)
	}
}

func TestFailedCollectionDoesNotLeakAcrossIdentities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.user.ID, 50000, false)

	flaky := &flakyStore{Store: f.mem}
	fam := family.NewService(f.mem, f.mem, nil)
	syncer := New(flaky, fam, nil)

	if _, err := syncer.Sync(ctx, f.user.ID); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// A different identity syncing through a failing fetch must not see the
	// previous user's rows.
	flaky.failExpenses = true
	snap, err := syncer.Sync(ctx, f.friend.ID)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(snap.Expenses) != 0 {
		t.Fatalf("previous identity's expenses leaked: %+v", snap.Expenses)
	}
}

// gatedStore blocks the first expense listing until released, to stage an
// overlapping stale sync deterministically. Later calls pass straight
// through.
type gatedStore struct {
	store.Store
	gate    chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (g *gatedStore) ListExpenses(ctx context.Context, ownerIDs []string) ([]core.Expense, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.gate
	}
	return g.Store.ListExpenses(ctx, ownerIDs)
}

func TestStaleInFlightSyncDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addExpense(t, f.user.ID, 50000, false)

	gated := &gatedStore{Store: f.mem, gate: make(chan struct{}), started: make(chan struct{})}
	fam := family.NewService(f.mem, f.mem, nil)
	syncer := New(gated, fam, nil)

	done := make(chan Snapshot)
	go func() {
		snap, _ := syncer.Sync(ctx, f.user.ID)
		done <- snap
	}()
	<-gated.started

	// While the first sync is blocked, a newer one adds a row and completes.
	f.addExpense(t, f.user.ID, 20000, false)
	newer, err := syncer.Sync(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("newer sync: %v", err)
	}
	if len(newer.Expenses) != 2 {
		t.Fatalf("newer sync should see both expenses: %+v", newer.Expenses)
	}

	close(gated.gate) // now let the stale sync finish
	<-done

	// The stale result must not have replaced the newer snapshot.
	if got := syncer.Snapshot(); len(got.Expenses) != 2 {
		t.Fatalf("stale sync overwrote newer state: %+v", got.Expenses)
	}
}
