package http

import (
	"encoding/base64"
	"net/http"

	"goighem/internal/advisor"
	"goighem/internal/core"
	"goighem/internal/session"
)

func (s *Server) advisorReady(w http.ResponseWriter) bool {
	if s.advisor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: advisor.FallbackAdvice})
		return false
	}
	return true
}

type receiptRequest struct {
	Image    string `json:"image"` // base64
	MimeType string `json:"mime_type"`
}

type parsedExpenseView struct {
	Amount   int64  `json:"amount"`
	Category string `json:"category"`
	Note     string `json:"note"`
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if !s.advisorReady(w) {
		return
	}
	var req receiptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(image) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid image payload"})
		return
	}
	mime := req.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	parsed, err := s.advisor.ScanReceipt(r.Context(), image, mime)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Em chưa đọc được hóa đơn này, chị thử chụp lại rõ hơn nhé!"})
		return
	}
	writeJSON(w, http.StatusOK, parsedExpenseView{
		Amount:   parsed.Amount.Amount,
		Category: parsed.Category,
		Note:     parsed.Note,
	})
}

type voiceRequest struct {
	Text string `json:"text"`
}

type voiceResponse struct {
	Expense parsedExpenseView `json:"expense"`
	Extra   int               `json:"extra"`
}

func (s *Server) handleParseVoice(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if !s.advisorReady(w) {
		return
	}
	var req voiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.advisor.ParseVoice(r.Context(), sanitizeInput(req.Text))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Em chưa hiểu câu này, chị nói lại giúp em nhé!"})
		return
	}
	writeJSON(w, http.StatusOK, voiceResponse{
		Expense: parsedExpenseView{
			Amount:   res.Expense.Amount.Amount,
			Category: res.Expense.Category,
			Note:     res.Expense.Note,
		},
		Extra: res.Extra,
	})
}

type extractRequest struct {
	Text string `json:"text"`
	// Add queues the extracted ingredients onto the shopping list.
	Add bool `json:"add"`
}

func (s *Server) handleExtractIngredients(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if !s.advisorReady(w) {
		return
	}
	var req extractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	names := s.advisor.ExtractIngredients(r.Context(), sanitizeInput(req.Text))
	if !req.Add {
		writeJSON(w, http.StatusOK, map[string]any{"ingredients": names})
		return
	}
	added, err := s.ctrl.AddIngredients(r.Context(), sess.UserID, names)
	if err != nil && len(added) == 0 {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ingredients": names,
		"added":       toShoppingViews(added),
	})
}

func (s *Server) handleShoppingAdvice(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if !s.advisorReady(w) {
		return
	}
	items := s.ctrl.Snapshot().Shopping
	names := make([]string, 0, len(items))
	for _, i := range items {
		if !i.Completed {
			names = append(names, i.Name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"advice": s.advisor.ShoppingAdvice(r.Context(), names),
	})
}

func (s *Server) handleHandbook(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if !s.advisorReady(w) {
		return
	}
	topic := advisor.HandbookTopic(r.URL.Query().Get("topic"))
	writeJSON(w, http.StatusOK, map[string]string{
		"content": s.advisor.Handbook(r.Context(), topic),
	})
}

type menuRequest struct {
	Budget int64 `json:"budget"`
}

func (s *Server) handleSuggestMenu(w http.ResponseWriter, r *http.Request, _ session.Session) {
	if !s.advisorReady(w) {
		return
	}
	var req menuRequest
	if !decodeBody(w, r, &req) {
		return
	}
	budget := core.VND(req.Budget)
	if budget.Amount <= 0 {
		budget = s.ctrl.Snapshot().Profile.WeeklyBudget
	}
	menu, err := s.advisor.SuggestMenu(r.Context(), budget)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: advisor.FallbackAdvice})
		return
	}
	writeJSON(w, http.StatusOK, menu)
}
