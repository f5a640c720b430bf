// Package app wires the loaded state to the mutation commands. Every user
// action goes through a named command here: validate, one store write,
// reconcile the snapshot from the write's result.
package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"goighem/internal/core"
	"goighem/internal/family"
	"goighem/internal/feed"
	"goighem/internal/log"
	"goighem/internal/session"
	"goighem/internal/store"
	"goighem/internal/sync"
)

var (
	// ErrConfirmationRequired guards destructive commands; callers retry
	// with confirmed=true after the user agrees.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrNoGoal means a contribution had nowhere to go; the caller should
	// prompt the user to create a goal first.
	ErrNoGoal = errors.New("no saving goal exists yet")

	ErrUnknownQuest   = errors.New("unknown quest")
	ErrFamilyRequired = errors.New("family wallet requires a connected link")
)

// Publisher announces completed writes so peer clients resync. Optional;
// the app works without a broker.
type Publisher interface {
	PublishChange(ctx context.Context, msg *feed.ChangeMessage) error
}

// Controller owns the wallet mode and executes mutation commands against
// the store, reconciling the syncer's snapshot afterwards.
type Controller struct {
	store   store.Store
	syncer  *sync.Syncer
	family  *family.Service
	publish Publisher
	logger  *log.Logger

	// mode is read and written from concurrent handler goroutines.
	mode atomic.Value
}

func NewController(st store.Store, syncer *sync.Syncer, fam *family.Service, publish Publisher, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(nil, log.ComponentApp)
	}
	c := &Controller{
		store:   st,
		syncer:  syncer,
		family:  fam,
		publish: publish,
		logger:  logger,
	}
	c.mode.Store(core.WalletPersonal)
	return c
}

// Snapshot exposes the current loaded state.
func (c *Controller) Snapshot() sync.Snapshot { return c.syncer.Snapshot() }

// WalletMode returns the active scope selector.
func (c *Controller) WalletMode() core.WalletMode {
	return c.mode.Load().(core.WalletMode)
}

// SetWalletMode switches scope. Family mode needs a connected link.
func (c *Controller) SetWalletMode(mode core.WalletMode) error {
	switch mode {
	case core.WalletPersonal:
		c.mode.Store(mode)
		return nil
	case core.WalletFamily:
		if !c.syncer.Snapshot().Family.Connected() {
			return ErrFamilyRequired
		}
		c.mode.Store(mode)
		return nil
	default:
		return errors.New("unknown wallet mode")
	}
}

func (c *Controller) announce(ctx context.Context, table, recordID, action, actorID string) {
	if c.publish == nil {
		return
	}
	msg := feed.NewChangeMessage(table, recordID, action, actorID)
	if err := c.publish.PublishChange(ctx, msg); err != nil {
		// Peers converge on their next sync anyway.
		c.logger.WarnContext(ctx, "change announcement failed",
			log.FieldTable, table, log.FieldError, err.Error())
	}
}

// AddExpense records a new expense for userID. The expense is attributed to
// the active wallet mode: family mode marks it shared.
func (c *Controller) AddExpense(ctx context.Context, userID string, amount core.Money, category, note string, occurredAt time.Time) (core.Expense, error) {
	e := core.Expense{
		OwnerID:      userID,
		Amount:       amount,
		Category:     category,
		Note:         note,
		OccurredAt:   occurredAt,
		FamilyShared: c.WalletMode() == core.WalletFamily,
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := c.store.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	c.syncer.SpliceExpense(created)
	c.announce(ctx, "expenses", created.ID, feed.ActionInsert, userID)
	return created, nil
}

// EditExpense replaces an existing expense with the given values.
func (c *Controller) EditExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.OwnerID = userID

	updated, err := c.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	c.syncer.SpliceExpense(updated)
	c.announce(ctx, "expenses", updated.ID, feed.ActionUpdate, userID)
	return updated, nil
}

// DeleteExpense removes an expense after explicit confirmation.
func (c *Controller) DeleteExpense(ctx context.Context, userID, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := c.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	c.syncer.RemoveExpense(id)
	c.announce(ctx, "expenses", id, feed.ActionDelete, userID)
	return nil
}

// CreateGoal starts a new saving goal.
func (c *Controller) CreateGoal(ctx context.Context, userID string, g core.SavingGoal) (core.SavingGoal, error) {
	g.OwnerID = userID
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if err := g.Validate(); err != nil {
		return core.SavingGoal{}, err
	}

	created, err := c.store.InsertGoal(ctx, g)
	if err != nil {
		return core.SavingGoal{}, err
	}
	c.syncer.SpliceGoal(created)
	c.announce(ctx, "saving_goals", created.ID, feed.ActionInsert, userID)
	return created, nil
}

// DeleteGoal removes a goal after explicit confirmation.
func (c *Controller) DeleteGoal(ctx context.Context, userID, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := c.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	c.syncer.RemoveGoal(id)
	c.announce(ctx, "saving_goals", id, feed.ActionDelete, userID)
	return nil
}

// Contribute adds a positive amount to a goal's saved total. Saved is never
// capped at the target; overshooting just reports above 100%.
func (c *Controller) Contribute(ctx context.Context, userID, goalID string, amount core.Money) (core.SavingGoal, error) {
	if amount.Amount <= 0 {
		return core.SavingGoal{}, core.ErrInvalidAmount
	}

	var goal *core.SavingGoal
	for _, g := range c.syncer.Snapshot().Goals {
		if g.ID == goalID {
			copied := g
			goal = &copied
			break
		}
	}
	if goal == nil {
		return core.SavingGoal{}, store.ErrNotFound
	}

	goal.Saved = goal.Saved.Add(amount)
	updated, err := c.store.UpdateGoal(ctx, *goal)
	if err != nil {
		return core.SavingGoal{}, err
	}
	c.syncer.SpliceGoal(updated)
	c.announce(ctx, "saving_goals", updated.ID, feed.ActionUpdate, userID)
	return updated, nil
}

// CompleteQuest contributes the quest's preset amount to the primary goal,
// which is the most recently created one. With no goal the command refuses
// rather than silently dropping the contribution.
func (c *Controller) CompleteQuest(ctx context.Context, userID, questID string) (core.SavingGoal, error) {
	quest, ok := core.QuestByID(questID)
	if !ok {
		return core.SavingGoal{}, ErrUnknownQuest
	}
	goals := c.syncer.Snapshot().Goals
	if len(goals) == 0 {
		return core.SavingGoal{}, ErrNoGoal
	}
	return c.Contribute(ctx, userID, goals[0].ID, quest.Amount)
}

// AddShoppingItem appends one item to the checklist.
func (c *Controller) AddShoppingItem(ctx context.Context, userID, name string) (core.ShoppingItem, error) {
	item := core.ShoppingItem{OwnerID: userID, Name: name, CreatedAt: time.Now()}
	if err := item.Validate(); err != nil {
		return core.ShoppingItem{}, err
	}

	created, err := c.store.InsertShoppingItem(ctx, item)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	c.syncer.SpliceShoppingItem(created)
	c.announce(ctx, "shopping_list", created.ID, feed.ActionInsert, userID)
	return created, nil
}

// AddIngredients bulk-adds extracted ingredient names, one insert each,
// sequentially. Partial success is accepted: inserted items stay, the first
// failure is returned, nothing is rolled back.
func (c *Controller) AddIngredients(ctx context.Context, userID string, names []string) ([]core.ShoppingItem, error) {
	var (
		added    []core.ShoppingItem
		firstErr error
	)
	for _, name := range names {
		item, err := c.AddShoppingItem(ctx, userID, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		added = append(added, item)
	}
	return added, firstErr
}

// ToggleShoppingItem flips an item's completed flag.
func (c *Controller) ToggleShoppingItem(ctx context.Context, userID, id string) (core.ShoppingItem, error) {
	var item *core.ShoppingItem
	for _, i := range c.syncer.Snapshot().Shopping {
		if i.ID == id {
			copied := i
			item = &copied
			break
		}
	}
	if item == nil {
		return core.ShoppingItem{}, store.ErrNotFound
	}

	item.Completed = !item.Completed
	updated, err := c.store.UpdateShoppingItem(ctx, *item)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	c.syncer.SpliceShoppingItem(updated)
	c.announce(ctx, "shopping_list", updated.ID, feed.ActionUpdate, userID)
	return updated, nil
}

// DeleteShoppingItem removes one checklist entry. Not guarded: losing a
// checklist line is cheap, unlike expenses and goals.
func (c *Controller) DeleteShoppingItem(ctx context.Context, userID, id string) error {
	if err := c.store.DeleteShoppingItem(ctx, id); err != nil {
		return err
	}
	c.syncer.RemoveShoppingItem(id)
	c.announce(ctx, "shopping_list", id, feed.ActionDelete, userID)
	return nil
}

// AddPantryItem records food at home with its expiry date.
func (c *Controller) AddPantryItem(ctx context.Context, userID string, p core.PantryItem) (core.PantryItem, error) {
	p.OwnerID = userID
	if err := p.Validate(); err != nil {
		return core.PantryItem{}, err
	}

	created, err := c.store.InsertPantryItem(ctx, p)
	if err != nil {
		return core.PantryItem{}, err
	}
	c.syncer.SplicePantryItem(created)
	c.announce(ctx, "pantry_items", created.ID, feed.ActionInsert, userID)
	return created, nil
}

// RemovePantryItem drops a pantry entry, typically once it is used up.
func (c *Controller) RemovePantryItem(ctx context.Context, userID, id string) error {
	if err := c.store.DeletePantryItem(ctx, id); err != nil {
		return err
	}
	c.syncer.RemovePantryItem(id)
	c.announce(ctx, "pantry_items", id, feed.ActionDelete, userID)
	return nil
}

// UpdateBudget upserts the budget profile.
func (c *Controller) UpdateBudget(ctx context.Context, userID string, p core.BudgetProfile) (core.BudgetProfile, error) {
	p.UserID = userID
	if p.Theme != "" && !p.Theme.Valid() {
		return core.BudgetProfile{}, errors.New("unknown theme")
	}

	saved, err := c.store.UpsertProfile(ctx, p)
	if err != nil {
		return core.BudgetProfile{}, err
	}
	c.syncer.SetProfile(saved)
	c.announce(ctx, "profiles", saved.UserID, feed.ActionUpdate, userID)
	return saved, nil
}

// RequestLink asks another account to share a family wallet.
func (c *Controller) RequestLink(ctx context.Context, userID, targetEmail string) (core.FamilyLink, error) {
	link, err := c.family.Request(ctx, userID, targetEmail)
	if err != nil {
		return core.FamilyLink{}, err
	}
	c.announce(ctx, "family_links", link.ID, feed.ActionInsert, userID)
	_, syncErr := c.syncer.Sync(ctx, userID)
	return link, syncErr
}

// AcceptLink confirms an incoming request and resyncs with the new scope.
func (c *Controller) AcceptLink(ctx context.Context, userID, linkID string) error {
	if err := c.family.Accept(ctx, userID, linkID); err != nil {
		return err
	}
	c.announce(ctx, "family_links", linkID, feed.ActionUpdate, userID)
	_, err := c.syncer.Sync(ctx, userID)
	return err
}

// DeclineLink rejects an incoming request.
func (c *Controller) DeclineLink(ctx context.Context, userID, linkID string) error {
	if err := c.family.Decline(ctx, userID, linkID); err != nil {
		return err
	}
	c.announce(ctx, "family_links", linkID, feed.ActionDelete, userID)
	_, err := c.syncer.Sync(ctx, userID)
	return err
}

// Unlink tears down the family link after confirmation. Wallet mode
// collapses to personal immediately; the partner's client converges on its
// next sync.
func (c *Controller) Unlink(ctx context.Context, userID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := c.family.Unlink(ctx, userID); err != nil {
		return err
	}
	c.mode.Store(core.WalletPersonal)
	c.announce(ctx, "family_links", "", feed.ActionDelete, userID)
	_, err := c.syncer.Sync(ctx, userID)
	return err
}

// SignOutCleanup clears all loaded state and resets the wallet mode.
func (c *Controller) SignOutCleanup() {
	c.mode.Store(core.WalletPersonal)
	c.syncer.Clear()
}

// Watch reacts to session changes until ctx ends or the channel closes.
// A sign-out clears all loaded state; a sign-in loads the new user's data.
func (c *Controller) Watch(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Session == nil {
				c.SignOutCleanup()
				continue
			}
			if _, err := c.syncer.Sync(ctx, ev.Session.UserID); err != nil {
				c.logger.WarnContext(ctx, "sync after session change failed",
					log.FieldUserID, ev.Session.UserID, log.FieldError, err.Error())
			}
		}
	}
}
