package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"goighem/internal/advisor"
	"goighem/internal/app"
	"goighem/internal/log"
	"goighem/internal/session"
	appsync "goighem/internal/sync"
)

// Server is the JSON API surface over the session gate and the command
// controller. Advisor is optional; without it the AI endpoints answer 503.
type Server struct {
	httpServer *http.Server
	gate       *session.Gate
	ctrl       *app.Controller
	syncer     *appsync.Syncer
	advisor    *advisor.Advisor
	limiter    *rateLimiter
	logger     *log.Logger

	shutdownOnce sync.Once
}

func NewServer(addr string, gate *session.Gate, ctrl *app.Controller, syncer *appsync.Syncer, adv *advisor.Advisor, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(nil, log.ComponentHTTP)
	}
	s := &Server{
		gate:    gate,
		ctrl:    ctrl,
		syncer:  syncer,
		advisor: adv,
		limiter: newRateLimiter(),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withSecurityHeaders(s.withRateLimit(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/session/sign-up", s.handleSignUp)
	mux.HandleFunc("POST /api/session/sign-in", s.handleSignIn)
	mux.HandleFunc("POST /api/session/sign-out", s.requireSession(s.handleSignOut))
	mux.HandleFunc("GET /api/session", s.requireSession(s.handleCurrentSession))

	mux.HandleFunc("GET /api/dashboard", s.requireSession(s.handleDashboard))
	mux.HandleFunc("POST /api/sync", s.requireSession(s.handleResync))

	mux.HandleFunc("GET /api/expenses", s.requireSession(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireSession(s.handleAddExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireSession(s.handleEditExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireSession(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/goals", s.requireSession(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.requireSession(s.handleCreateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.requireSession(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.requireSession(s.handleContribute))
	mux.HandleFunc("GET /api/quests", s.requireSession(s.handleListQuests))
	mux.HandleFunc("POST /api/quests/{id}/complete", s.requireSession(s.handleCompleteQuest))

	mux.HandleFunc("GET /api/shopping", s.requireSession(s.handleListShopping))
	mux.HandleFunc("POST /api/shopping", s.requireSession(s.handleAddShoppingItem))
	mux.HandleFunc("POST /api/shopping/bulk", s.requireSession(s.handleAddIngredients))
	mux.HandleFunc("POST /api/shopping/{id}/toggle", s.requireSession(s.handleToggleShoppingItem))
	mux.HandleFunc("DELETE /api/shopping/{id}", s.requireSession(s.handleDeleteShoppingItem))

	mux.HandleFunc("GET /api/pantry", s.requireSession(s.handleListPantry))
	mux.HandleFunc("POST /api/pantry", s.requireSession(s.handleAddPantryItem))
	mux.HandleFunc("DELETE /api/pantry/{id}", s.requireSession(s.handleRemovePantryItem))

	mux.HandleFunc("PUT /api/budget", s.requireSession(s.handleUpdateBudget))
	mux.HandleFunc("POST /api/wallet-mode", s.requireSession(s.handleSetWalletMode))

	mux.HandleFunc("GET /api/family", s.requireSession(s.handleFamilyState))
	mux.HandleFunc("POST /api/family/request", s.requireSession(s.handleRequestLink))
	mux.HandleFunc("POST /api/family/{id}/accept", s.requireSession(s.handleAcceptLink))
	mux.HandleFunc("POST /api/family/{id}/decline", s.requireSession(s.handleDeclineLink))
	mux.HandleFunc("DELETE /api/family", s.requireSession(s.handleUnlink))

	mux.HandleFunc("POST /api/advisor/receipt", s.requireSession(s.handleScanReceipt))
	mux.HandleFunc("POST /api/advisor/voice", s.requireSession(s.handleParseVoice))
	mux.HandleFunc("POST /api/advisor/ingredients", s.requireSession(s.handleExtractIngredients))
	mux.HandleFunc("POST /api/advisor/advice", s.requireSession(s.handleShoppingAdvice))
	mux.HandleFunc("GET /api/advisor/handbook", s.requireSession(s.handleHandbook))
	mux.HandleFunc("POST /api/advisor/menu", s.requireSession(s.handleSuggestMenu))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess session.Session)

// requireSession gates a handler on an active session. The bearer token, when
// present, must match the one issued at sign-in.
func (s *Server) requireSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur := s.gate.Current()
		if cur == nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Bạn cần đăng nhập để tiếp tục."})
			return
		}
		if tok := bearerToken(r); tok != "" && tok != cur.AccessToken {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Phiên đăng nhập không hợp lệ."})
			return
		}
		h(w, r, *cur)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.Warn("rate limit exceeded", "ip", ip)
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Bạn thao tác hơi nhanh, chờ một chút nhé!"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}
