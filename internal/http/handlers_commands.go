package http

import (
	"net/http"
	"time"

	"goighem/internal/core"
	"goighem/internal/session"
)

type expenseRequest struct {
	Amount     int64     `json:"amount"`
	Category   string    `json:"category"`
	Note       string    `json:"note"`
	OccurredAt time.Time `json:"occurred_at"`
	// FamilyShared is honored on edits only; new expenses inherit the
	// active wallet mode.
	FamilyShared bool `json:"family_shared"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := s.ctrl.AddExpense(r.Context(), sess.UserID, core.VND(req.Amount), sanitizeInput(req.Category), sanitizeInput(req.Note), req.OccurredAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseView(e))
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e := core.Expense{
		ID:           r.PathValue("id"),
		Amount:       core.VND(req.Amount),
		Category:     sanitizeInput(req.Category),
		Note:         sanitizeInput(req.Note),
		OccurredAt:   req.OccurredAt,
		FamilyShared: req.FamilyShared,
	}
	updated, err := s.ctrl.EditExpense(r.Context(), sess.UserID, e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseView(updated))
}

func confirmed(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.DeleteExpense(r.Context(), sess.UserID, r.PathValue("id"), confirmed(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type goalRequest struct {
	Name     string `json:"name"`
	Target   int64  `json:"target"`
	Icon     string `json:"icon"`
	ColorTag string `json:"color_tag"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req goalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g := core.SavingGoal{
		Name:     sanitizeInput(req.Name),
		Target:   core.VND(req.Target),
		Icon:     sanitizeInput(req.Icon),
		ColorTag: sanitizeInput(req.ColorTag),
	}
	created, err := s.ctrl.CreateGoal(r.Context(), sess.UserID, g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalView(created))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.DeleteGoal(r.Context(), sess.UserID, r.PathValue("id"), confirmed(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type contributeRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req contributeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := s.ctrl.Contribute(r.Context(), sess.UserID, r.PathValue("id"), core.VND(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(g))
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request, sess session.Session) {
	g, err := s.ctrl.CompleteQuest(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(g))
}

type shoppingRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddShoppingItem(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req shoppingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := s.ctrl.AddShoppingItem(r.Context(), sess.UserID, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShoppingView(item))
}

type ingredientsRequest struct {
	Names []string `json:"names"`
}

type ingredientsResponse struct {
	Added  []shoppingView `json:"added"`
	Failed int            `json:"failed"`
}

func (s *Server) handleAddIngredients(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req ingredientsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	names := make([]string, 0, len(req.Names))
	for _, n := range req.Names {
		names = append(names, sanitizeInput(n))
	}
	added, err := s.ctrl.AddIngredients(r.Context(), sess.UserID, names)
	resp := ingredientsResponse{Added: toShoppingViews(added), Failed: len(names) - len(added)}
	if err != nil && len(added) == 0 {
		writeError(w, err)
		return
	}
	// Partial failure still reports what made it in.
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleToggleShoppingItem(w http.ResponseWriter, r *http.Request, sess session.Session) {
	item, err := s.ctrl.ToggleShoppingItem(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShoppingView(item))
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.DeleteShoppingItem(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type pantryRequest struct {
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleAddPantryItem(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req pantryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := core.PantryItem{
		Name:      sanitizeInput(req.Name),
		Quantity:  sanitizeInput(req.Quantity),
		ExpiresAt: req.ExpiresAt,
	}
	created, err := s.ctrl.AddPantryItem(r.Context(), sess.UserID, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPantryView(created))
}

func (s *Server) handleRemovePantryItem(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.ctrl.RemovePantryItem(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type budgetRequest struct {
	MonthlyBudget int64  `json:"monthly_budget"`
	WeeklyBudget  int64  `json:"weekly_budget"`
	FamilyBudget  int64  `json:"family_budget"`
	Theme         string `json:"theme"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := core.BudgetProfile{
		MonthlyBudget: core.VND(req.MonthlyBudget),
		WeeklyBudget:  core.VND(req.WeeklyBudget),
		FamilyBudget:  core.VND(req.FamilyBudget),
		Theme:         core.Theme(req.Theme),
	}
	updated, err := s.ctrl.UpdateBudget(r.Context(), sess.UserID, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetView(updated))
}

type walletModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetWalletMode(w http.ResponseWriter, r *http.Request, _ session.Session) {
	var req walletModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode := core.WalletMode(req.Mode)
	if mode != core.WalletPersonal && mode != core.WalletFamily {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid wallet mode"})
		return
	}
	if err := s.ctrl.SetWalletMode(mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}
