package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goighem/internal/app"
	"goighem/internal/family"
	"goighem/internal/session"
	"goighem/internal/store/memory"
	appsync "goighem/internal/sync"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := memory.New()
	fam := family.NewService(mem, mem, nil)
	syncer := appsync.New(mem, fam, nil)
	ctrl := app.NewController(mem, syncer, fam, nil, nil)
	tokens := session.NewTokenManager("test-secret", time.Hour)
	gate := session.NewGate(session.NewLocalAuthenticator(mem, tokens), nil)
	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := gate.Subscribe()
	go ctrl.Watch(ctx, events)
	t.Cleanup(func() {
		unsubscribe()
		cancel()
	})
	return NewServer(":0", gate, ctrl, syncer, nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func signUp(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/session/sign-up", "", credentialsRequest{
		Email:       email,
		Password:    "secret-pass",
		DisplayName: "Chị Hoa",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	decodeInto(t, rec, &resp)
	if resp.AccessToken == "" {
		t.Fatal("sign-up returned no access token")
	}
	return resp.AccessToken
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// No session yet.
	if rec := doJSON(t, h, http.MethodGet, "/api/dashboard", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard before sign-in = %d, want 401", rec.Code)
	}

	token := signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodGet, "/api/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current session = %d, body %s", rec.Code, rec.Body.String())
	}

	// A token from nowhere is rejected.
	if rec := doJSON(t, h, http.MethodGet, "/api/session", "bogus-token", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token = %d, want 401", rec.Code)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/session/sign-out", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("sign-out = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/dashboard", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard after sign-out = %d, want 401", rec.Code)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/session/sign-in", "", credentialsRequest{
		Email:    "hoa@example.com",
		Password: "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", rec.Code)
	}
	var body errorBody
	decodeInto(t, rec, &body)
	if body.Error == "" {
		t.Fatal("expected a localized error message")
	}
}

func TestExpenseFlowAndDashboard(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount:   55_000,
		Category: "Ăn uống",
		Note:     "bún chả",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense = %d, body %s", rec.Code, rec.Body.String())
	}
	var created expenseView
	decodeInto(t, rec, &created)
	if created.ID == "" || created.Amount != 55_000 {
		t.Fatalf("unexpected created expense: %+v", created)
	}

	var dash dashboardResponse
	decodeInto(t, doJSON(t, h, http.MethodGet, "/api/dashboard", token, nil), &dash)
	if dash.MonthlySpent != 55_000 {
		t.Fatalf("monthly spent = %d, want 55000", dash.MonthlySpent)
	}
	if len(dash.Breakdown) != 1 || dash.Breakdown[0].Name != "Ăn uống" {
		t.Fatalf("unexpected breakdown: %+v", dash.Breakdown)
	}
	if dash.Streak != 1 {
		t.Fatalf("streak = %d, want 1", dash.Streak)
	}

	// Search hits the note.
	var list []expenseView
	decodeInto(t, doJSON(t, h, http.MethodGet, "/api/expenses?q=bún", token, nil), &list)
	if len(list) != 1 {
		t.Fatalf("search returned %d expenses, want 1", len(list))
	}
}

func TestDeleteExpenseNeedsConfirmation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	var created expenseView
	decodeInto(t, doJSON(t, h, http.MethodPost, "/api/expenses", token, expenseRequest{
		Amount: 20_000, Category: "Đi lại",
	}), &created)

	if rec := doJSON(t, h, http.MethodDelete, "/api/expenses/"+created.ID, token, nil); rec.Code != http.StatusConflict {
		t.Fatalf("unconfirmed delete = %d, want 409", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodDelete, "/api/expenses/"+created.ID+"?confirm=true", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("confirmed delete = %d", rec.Code)
	}

	var list []expenseView
	decodeInto(t, doJSON(t, h, http.MethodGet, "/api/expenses", token, nil), &list)
	if len(list) != 0 {
		t.Fatalf("expense list after delete has %d rows", len(list))
	}
}

func TestQuestEndpoint(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	// No goal yet.
	if rec := doJSON(t, h, http.MethodPost, "/api/quests/skip-milk-tea/complete", token, nil); rec.Code != http.StatusConflict {
		t.Fatalf("quest without goal = %d, want 409", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/goals", token, goalRequest{
		Name: "Mua xe đạp", Target: 2_000_000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d, body %s", rec.Code, rec.Body.String())
	}

	var g goalView
	decodeInto(t, doJSON(t, h, http.MethodPost, "/api/quests/skip-milk-tea/complete", token, nil), &g)
	if g.Saved != 30_000 {
		t.Fatalf("saved after quest = %d, want 30000", g.Saved)
	}

	if rec := doJSON(t, h, http.MethodPost, "/api/quests/no-such-quest/complete", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown quest = %d, want 404", rec.Code)
	}
}

func TestWalletModeRequiresFamily(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/wallet-mode", token, walletModeRequest{Mode: "family"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("family mode without link = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/wallet-mode", token, walletModeRequest{Mode: "personal"}); rec.Code != http.StatusOK {
		t.Fatalf("personal mode = %d", rec.Code)
	}
}

func TestBudgetUpdate(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodPut, "/api/budget", token, budgetRequest{
		MonthlyBudget: 6_000_000, WeeklyBudget: 1_500_000, Theme: "mint",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("budget update = %d, body %s", rec.Code, rec.Body.String())
	}
	var b budgetView
	decodeInto(t, rec, &b)
	if b.MonthlyBudget != 6_000_000 || b.Theme != "mint" {
		t.Fatalf("unexpected budget: %+v", b)
	}
}

func TestShoppingAndPantry(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	var item shoppingView
	decodeInto(t, doJSON(t, h, http.MethodPost, "/api/shopping", token, shoppingRequest{Name: "rau muống"}), &item)
	if item.Completed {
		t.Fatal("new shopping item starts completed")
	}

	var toggled shoppingView
	decodeInto(t, doJSON(t, h, http.MethodPost, "/api/shopping/"+item.ID+"/toggle", token, nil), &toggled)
	if !toggled.Completed {
		t.Fatal("toggle did not complete the item")
	}

	var bulk ingredientsResponse
	decodeInto(t, doJSON(t, h, http.MethodPost, "/api/shopping/bulk", token, ingredientsRequest{
		Names: []string{"thịt ba chỉ", "hành lá"},
	}), &bulk)
	if len(bulk.Added) != 2 || bulk.Failed != 0 {
		t.Fatalf("bulk add = %+v", bulk)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/pantry", token, pantryRequest{Name: "trứng gà", Quantity: "10 quả"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add pantry = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestFamilyLinkOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Second account to link with; it signs up first so the requester
	// holds the active session afterwards.
	signUp(t, h, "me@example.com")
	token := signUp(t, h, "chi@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/family/request", token, linkRequest{Email: "me@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("link request = %d, body %s", rec.Code, rec.Body.String())
	}

	var fam familyView
	decodeInto(t, doJSON(t, h, http.MethodGet, "/api/family", token, nil), &fam)
	if fam.Status != "pending" {
		t.Fatalf("family status = %q, want pending", fam.Status)
	}

	// Linking to yourself is refused.
	if rec := doJSON(t, h, http.MethodPost, "/api/family/request", token, linkRequest{Email: "chi@example.com"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("self link = %d, want 400", rec.Code)
	}
}

func TestAdvisorUnavailable(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := signUp(t, h, "hoa@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/advisor/voice", token, voiceRequest{Text: "mua rau 20k"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("advisor endpoint without advisor = %d, want 503", rec.Code)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	srv := newTestServer(t)
	defer srv.limiter.stop()
	h := srv.Handler()

	limited := false
	for i := 0; i < requestsPerMinute+1; i++ {
		rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("rate limiter never triggered")
	}
}
