package http

import (
	"time"

	"goighem/internal/core"
	"goighem/internal/family"
)

// Amounts travel as integer đồng on the wire, same as in storage.

type expenseView struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Amount       int64     `json:"amount"`
	Category     string    `json:"category"`
	Note         string    `json:"note,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	FamilyShared bool      `json:"family_shared"`
}

func toExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:           e.ID,
		OwnerID:      e.OwnerID,
		Amount:       e.Amount.Amount,
		Category:     e.Category,
		Note:         e.Note,
		OccurredAt:   e.OccurredAt,
		FamilyShared: e.FamilyShared,
	}
}

func toExpenseViews(in []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(in))
	for _, e := range in {
		out = append(out, toExpenseView(e))
	}
	return out
}

type goalView struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Target    int64     `json:"target"`
	Saved     int64     `json:"saved"`
	Progress  int       `json:"progress"`
	Icon      string    `json:"icon,omitempty"`
	ColorTag  string    `json:"color_tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toGoalView(g core.SavingGoal) goalView {
	return goalView{
		ID:        g.ID,
		OwnerID:   g.OwnerID,
		Name:      g.Name,
		Target:    g.Target.Amount,
		Saved:     g.Saved.Amount,
		Progress:  g.Progress(),
		Icon:      g.Icon,
		ColorTag:  g.ColorTag,
		CreatedAt: g.CreatedAt,
	}
}

func toGoalViews(in []core.SavingGoal) []goalView {
	out := make([]goalView, 0, len(in))
	for _, g := range in {
		out = append(out, toGoalView(g))
	}
	return out
}

type shoppingView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func toShoppingView(i core.ShoppingItem) shoppingView {
	return shoppingView{ID: i.ID, Name: i.Name, Completed: i.Completed, CreatedAt: i.CreatedAt}
}

func toShoppingViews(in []core.ShoppingItem) []shoppingView {
	out := make([]shoppingView, 0, len(in))
	for _, i := range in {
		out = append(out, toShoppingView(i))
	}
	return out
}

type pantryView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toPantryView(p core.PantryItem) pantryView {
	return pantryView{ID: p.ID, Name: p.Name, Quantity: p.Quantity, ExpiresAt: p.ExpiresAt}
}

func toPantryViews(in []core.PantryItem) []pantryView {
	out := make([]pantryView, 0, len(in))
	for _, p := range in {
		out = append(out, toPantryView(p))
	}
	return out
}

type budgetView struct {
	MonthlyBudget int64  `json:"monthly_budget"`
	WeeklyBudget  int64  `json:"weekly_budget"`
	FamilyBudget  int64  `json:"family_budget"`
	Theme         string `json:"theme"`
}

func toBudgetView(p core.BudgetProfile) budgetView {
	return budgetView{
		MonthlyBudget: p.MonthlyBudget.Amount,
		WeeklyBudget:  p.WeeklyBudget.Amount,
		FamilyBudget:  p.FamilyBudget.Amount,
		Theme:         string(p.Theme),
	}
}

type userView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type linkRequestView struct {
	LinkID         string    `json:"link_id"`
	RequesterEmail string    `json:"requester_email"`
	RequesterName  string    `json:"requester_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type familyView struct {
	Status   string            `json:"status"`
	Partner  *userView         `json:"partner,omitempty"`
	Incoming []linkRequestView `json:"incoming"`
}

func toFamilyView(st family.State) familyView {
	v := familyView{Status: string(st.Status), Incoming: []linkRequestView{}}
	if st.Partner != nil {
		v.Partner = &userView{ID: st.Partner.ID, Email: st.Partner.Email, DisplayName: st.Partner.DisplayName}
	}
	for _, req := range st.Incoming {
		v.Incoming = append(v.Incoming, linkRequestView{
			LinkID:         req.Link.ID,
			RequesterEmail: req.Requester.Email,
			RequesterName:  req.Requester.DisplayName,
			CreatedAt:      req.Link.CreatedAt,
		})
	}
	return v
}

type questView struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
}

type categoryAmountView struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Color  string `json:"color"`
}

type dayAmountView struct {
	Day    string `json:"day"` // YYYY-MM-DD
	Amount int64  `json:"amount"`
}

type levelView struct {
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Threshold int64   `json:"threshold"`
	NextName  string  `json:"next_name,omitempty"`
	NextAt    int64   `json:"next_at,omitempty"`
	Toward    float64 `json:"toward"`
}

func toLevelView(lp core.LevelProgress) levelView {
	v := levelView{
		Name:      lp.Current.Name,
		Icon:      lp.Current.Icon,
		Threshold: lp.Current.Threshold,
		Toward:    lp.Toward,
	}
	if lp.Next != nil {
		v.NextName = lp.Next.Name
		v.NextAt = lp.Next.Threshold
	}
	return v
}
