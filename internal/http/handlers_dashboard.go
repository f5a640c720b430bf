package http

import (
	"net/http"
	"time"

	"goighem/internal/core"
	"goighem/internal/log"
	"goighem/internal/session"
)

type dashboardResponse struct {
	WalletMode   string               `json:"wallet_mode"`
	MonthlySpent int64                `json:"monthly_spent"`
	WeeklySpent  int64                `json:"weekly_spent"`
	Savings      int64                `json:"savings"`
	Budget       budgetView           `json:"budget"`
	Breakdown    []categoryAmountView `json:"breakdown"`
	WeekTrend    []dayAmountView      `json:"week_trend"`
	Streak       int                  `json:"streak"`
	TotalSaved   int64                `json:"total_saved"`
	Level        levelView            `json:"level"`
	Goals        []goalView           `json:"goals"`
	ExpiringSoon []pantryView         `json:"expiring_soon"`
	Family       familyView           `json:"family"`
}

// handleDashboard renders every aggregate the home screen needs from the
// in-memory snapshot. No storage reads happen here.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request, sess session.Session) {
	snap := s.ctrl.Snapshot()
	mode := s.ctrl.WalletMode()
	now := time.Now()

	monthly := core.MonthlySpent(snap.Expenses, mode, now)
	budget := snap.Profile.MonthlyBudget
	if mode == core.WalletFamily && snap.Profile.FamilyBudget.Amount > 0 {
		budget = snap.Profile.FamilyBudget
	}
	total := core.TotalSaved(snap.Goals)

	resp := dashboardResponse{
		WalletMode:   string(mode),
		MonthlySpent: monthly.Amount,
		WeeklySpent:  core.WeeklySpent(snap.Expenses, mode, now).Amount,
		Savings:      core.Savings(budget, monthly).Amount,
		Budget:       toBudgetView(snap.Profile),
		Breakdown:    []categoryAmountView{},
		WeekTrend:    []dayAmountView{},
		Streak:       core.Streak(snap.Expenses, now),
		TotalSaved:   total.Amount,
		Level:        toLevelView(core.LevelFor(total)),
		Goals:        toGoalViews(snap.Goals),
		ExpiringSoon: toPantryViews(core.ExpiringSoon(snap.Pantry, now)),
		Family:       toFamilyView(snap.Family),
	}
	for _, c := range core.CategoryBreakdown(snap.Expenses, mode) {
		resp.Breakdown = append(resp.Breakdown, categoryAmountView{
			Name:   c.Name,
			Amount: c.Amount.Amount,
			Color:  core.CategoryColor(c.Name),
		})
	}
	for _, d := range core.WeekTrend(snap.Expenses, mode, now) {
		resp.WeekTrend = append(resp.WeekTrend, dayAmountView{
			Day:    d.Day.Format("2006-01-02"),
			Amount: d.Amount.Amount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if _, err := s.syncer.Sync(r.Context(), sess.UserID); err != nil {
		s.logger.Warn("manual resync incomplete", log.FieldUserID, sess.UserID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, _ session.Session) {
	snap := s.ctrl.Snapshot()
	scoped := core.ScopedExpenses(snap.Expenses, s.ctrl.WalletMode())
	if q := sanitizeInput(r.URL.Query().Get("q")); q != "" {
		scoped = core.SearchExpenses(scoped, q)
	}
	writeJSON(w, http.StatusOK, toExpenseViews(scoped))
}

func (s *Server) handleListGoals(w http.ResponseWriter, _ *http.Request, _ session.Session) {
	writeJSON(w, http.StatusOK, toGoalViews(s.ctrl.Snapshot().Goals))
}

func (s *Server) handleListQuests(w http.ResponseWriter, _ *http.Request, _ session.Session) {
	out := make([]questView, 0, 4)
	for _, q := range core.Quests() {
		out = append(out, questView{ID: q.ID, Title: q.Title, Amount: q.Amount.Amount})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListShopping(w http.ResponseWriter, _ *http.Request, _ session.Session) {
	writeJSON(w, http.StatusOK, toShoppingViews(s.ctrl.Snapshot().Shopping))
}

func (s *Server) handleListPantry(w http.ResponseWriter, _ *http.Request, _ session.Session) {
	writeJSON(w, http.StatusOK, toPantryViews(s.ctrl.Snapshot().Pantry))
}

func (s *Server) handleFamilyState(w http.ResponseWriter, _ *http.Request, _ session.Session) {
	writeJSON(w, http.StatusOK, toFamilyView(s.ctrl.Snapshot().Family))
}
