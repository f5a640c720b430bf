package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"goighem/internal/app"
	"goighem/internal/core"
	"goighem/internal/family"
	"goighem/internal/session"
	"goighem/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a command failure to a status code and a user-facing
// message. Auth errors go through the localized substring table.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrConfirmationRequired):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Hành động này cần xác nhận trước khi thực hiện."})
	case errors.Is(err, app.ErrNoGoal):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Bạn chưa có mục tiêu tiết kiệm nào. Tạo một mục tiêu trước nhé!"})
	case errors.Is(err, app.ErrFamilyRequired):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Ví gia đình cần kết nối với người thân trước."})
	case errors.Is(err, core.ErrSelfLink):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Bạn không thể kết nối với chính mình."})
	case errors.Is(err, family.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Không tìm thấy tài khoản với email này."})
	case errors.Is(err, family.ErrAlreadyConnected):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Bạn đã kết nối ví gia đình rồi."})
	case errors.Is(err, app.ErrUnknownQuest):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Không tìm thấy thử thách này."})
	case errors.Is(err, family.ErrLinkNotFound), errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Không tìm thấy dữ liệu."})
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Bạn chưa đăng nhập."})
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrEmailExists),
		errors.Is(err, session.ErrWeakPassword):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: session.LocalizeAuthError(err)})
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrTargetNotSet),
		errors.Is(err, core.ErrNegativeSaved),
		errors.Is(err, core.ErrNoteTooLong):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Có lỗi xảy ra. Bạn thử lại sau nhé!"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// sanitizeInput trims and strips control characters from user text.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		return host[:i]
	}
	return host
}
