// Package rest is the remote store adapter. It speaks the hosted
// backend's PostgREST-style row API: filters in the query string, JSON
// arrays on the wire, Prefer headers for returning representations.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"goighem/internal/core"
	"goighem/internal/store"
)

// TokenSource supplies the current access token; the session gate owns it.
// An empty string means anonymous access.
type TokenSource func() string

type Client struct {
	baseURL string
	apiKey  string
	token   TokenSource
	http    *http.Client
}

var _ store.Store = (*Client)(nil)

func New(baseURL, apiKey string, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Close() error { return nil }

// do issues one row-API request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, table, rawQuery string, body any, prefer string) ([]byte, error) {
	u := c.baseURL + "/rest/v1/" + table
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", table, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, truncate(data))
	}
	return data, nil
}

func truncate(b []byte) string {
	const max = 200
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// rows splits a JSON array response into raw elements for the codec.
func rows(data []byte) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode row array: %w", err)
	}
	return out, nil
}

func inList(ids []string) string {
	return "in.(" + strings.Join(ids, ",") + ")"
}

const returning = "return=representation"

func (c *Client) ListExpenses(ctx context.Context, ownerIDs []string) ([]core.Expense, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("owner_id", inList(ownerIDs))
	q.Set("order", "occurred_at.desc")
	data, err := c.do(ctx, http.MethodGet, "expenses", q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	raw, err := rows(data)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(raw))
	for _, r := range raw {
		e, err := store.DecodeExpense(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	data, err := c.do(ctx, http.MethodPost, "expenses", "", []map[string]any{store.EncodeExpense(e)}, returning)
	if err != nil {
		return core.Expense{}, err
	}
	return firstExpense(data, e)
}

func (c *Client) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	q := url.Values{}
	q.Set("id", "eq."+e.ID)
	data, err := c.do(ctx, http.MethodPatch, "expenses", q.Encode(), store.EncodeExpense(e), returning)
	if err != nil {
		return core.Expense{}, err
	}
	return firstExpense(data, e)
}

// firstExpense decodes the canonical record from a returning write, falling
// back to the request record when the store returned an empty body.
func firstExpense(data []byte, fallback core.Expense) (core.Expense, error) {
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return fallback, nil
	}
	return store.DecodeExpense(raw[0])
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, "expenses", q.Encode(), nil, "")
	return err
}

func (c *Client) ListShoppingItems(ctx context.Context, ownerID string) ([]core.ShoppingItem, error) {
	q := url.Values{}
	q.Set("owner_id", "eq."+ownerID)
	q.Set("order", "created_at.asc")
	data, err := c.do(ctx, http.MethodGet, "shopping_list", q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	raw, err := rows(data)
	if err != nil {
		return nil, err
	}
	out := make([]core.ShoppingItem, 0, len(raw))
	for _, r := range raw {
		it, err := store.DecodeShoppingItem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (c *Client) InsertShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	data, err := c.do(ctx, http.MethodPost, "shopping_list", "", []map[string]any{store.EncodeShoppingItem(item)}, returning)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return item, nil
	}
	return store.DecodeShoppingItem(raw[0])
}

func (c *Client) UpdateShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	q := url.Values{}
	q.Set("id", "eq."+item.ID)
	data, err := c.do(ctx, http.MethodPatch, "shopping_list", q.Encode(), store.EncodeShoppingItem(item), returning)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return item, nil
	}
	return store.DecodeShoppingItem(raw[0])
}

func (c *Client) DeleteShoppingItem(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, "shopping_list", q.Encode(), nil, "")
	return err
}

func (c *Client) ListGoals(ctx context.Context, ownerID string) ([]core.SavingGoal, error) {
	q := url.Values{}
	q.Set("owner_id", "eq."+ownerID)
	q.Set("order", "created_at.desc")
	data, err := c.do(ctx, http.MethodGet, "saving_goals", q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	raw, err := rows(data)
	if err != nil {
		return nil, err
	}
	out := make([]core.SavingGoal, 0, len(raw))
	for _, r := range raw {
		g, err := store.DecodeGoal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (c *Client) InsertGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	data, err := c.do(ctx, http.MethodPost, "saving_goals", "", []map[string]any{store.EncodeGoal(g)}, returning)
	if err != nil {
		return core.SavingGoal{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return g, nil
	}
	return store.DecodeGoal(raw[0])
}

func (c *Client) UpdateGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	q := url.Values{}
	q.Set("id", "eq."+g.ID)
	data, err := c.do(ctx, http.MethodPatch, "saving_goals", q.Encode(), store.EncodeGoal(g), returning)
	if err != nil {
		return core.SavingGoal{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return g, nil
	}
	return store.DecodeGoal(raw[0])
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, "saving_goals", q.Encode(), nil, "")
	return err
}

func (c *Client) ListPantryItems(ctx context.Context, ownerID string) ([]core.PantryItem, error) {
	q := url.Values{}
	q.Set("owner_id", "eq."+ownerID)
	q.Set("order", "expires_at.asc")
	data, err := c.do(ctx, http.MethodGet, "pantry_items", q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	raw, err := rows(data)
	if err != nil {
		return nil, err
	}
	out := make([]core.PantryItem, 0, len(raw))
	for _, r := range raw {
		p, err := store.DecodePantryItem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) InsertPantryItem(ctx context.Context, item core.PantryItem) (core.PantryItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	data, err := c.do(ctx, http.MethodPost, "pantry_items", "", []map[string]any{store.EncodePantryItem(item)}, returning)
	if err != nil {
		return core.PantryItem{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return item, nil
	}
	return store.DecodePantryItem(raw[0])
}

func (c *Client) DeletePantryItem(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, "pantry_items", q.Encode(), nil, "")
	return err
}

func (c *Client) GetProfile(ctx context.Context, userID string) (core.BudgetProfile, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	data, err := c.do(ctx, http.MethodGet, "profiles", q.Encode(), nil, "")
	if err != nil {
		return core.BudgetProfile{}, err
	}
	raw, err := rows(data)
	if err != nil {
		return core.BudgetProfile{}, err
	}
	if len(raw) == 0 {
		return core.BudgetProfile{}, store.ErrNotFound
	}
	return store.DecodeProfile(raw[0])
}

func (c *Client) UpsertProfile(ctx context.Context, p core.BudgetProfile) (core.BudgetProfile, error) {
	data, err := c.do(ctx, http.MethodPost, "profiles", "",
		[]map[string]any{store.EncodeProfile(p)}, "resolution=merge-duplicates,"+returning)
	if err != nil {
		return core.BudgetProfile{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return p, nil
	}
	return store.DecodeProfile(raw[0])
}

func (c *Client) ConnectedLink(ctx context.Context, userID string) (*core.FamilyLink, error) {
	q := url.Values{}
	q.Set("status", "eq.connected")
	q.Set("or", fmt.Sprintf("(requester_id.eq.%s,recipient_id.eq.%s)", userID, userID))
	q.Set("limit", "1")
	links, err := c.queryLinks(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	return &links[0], nil
}

func (c *Client) PendingLinksTo(ctx context.Context, userID string) ([]core.FamilyLink, error) {
	q := url.Values{}
	q.Set("status", "eq.pending")
	q.Set("recipient_id", "eq."+userID)
	q.Set("order", "created_at.asc")
	return c.queryLinks(ctx, q)
}

func (c *Client) PendingLinksFrom(ctx context.Context, userID string) ([]core.FamilyLink, error) {
	q := url.Values{}
	q.Set("status", "eq.pending")
	q.Set("requester_id", "eq."+userID)
	q.Set("order", "created_at.asc")
	return c.queryLinks(ctx, q)
}

func (c *Client) queryLinks(ctx context.Context, q url.Values) ([]core.FamilyLink, error) {
	data, err := c.do(ctx, http.MethodGet, "family_links", q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	raw, err := rows(data)
	if err != nil {
		return nil, err
	}
	out := make([]core.FamilyLink, 0, len(raw))
	for _, r := range raw {
		l, err := store.DecodeFamilyLink(r)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *Client) InsertLink(ctx context.Context, l core.FamilyLink) (core.FamilyLink, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	data, err := c.do(ctx, http.MethodPost, "family_links", "", []map[string]any{store.EncodeFamilyLink(l)}, returning)
	if err != nil {
		return core.FamilyLink{}, err
	}
	raw, err := rows(data)
	if err != nil || len(raw) == 0 {
		return l, nil
	}
	return store.DecodeFamilyLink(raw[0])
}

func (c *Client) SetLinkStatus(ctx context.Context, id string, status core.LinkStatus) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodPatch, "family_links", q.Encode(), map[string]any{"status": string(status)}, "")
	return err
}

func (c *Client) DeleteLink(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	_, err := c.do(ctx, http.MethodDelete, "family_links", q.Encode(), nil, "")
	return err
}

// Identity rows live in the profiles table on the hosted backend.
func (c *Client) GetUser(ctx context.Context, id string) (core.User, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+id)
	data, err := c.do(ctx, http.MethodGet, "profiles", q.Encode(), nil, "")
	if err != nil {
		return core.User{}, err
	}
	raw, err := rows(data)
	if err != nil {
		return core.User{}, err
	}
	if len(raw) == 0 {
		return core.User{}, store.ErrNotFound
	}
	return store.DecodeUser(raw[0])
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	q := url.Values{}
	q.Set("email", "eq."+strings.ToLower(strings.TrimSpace(email)))
	data, err := c.do(ctx, http.MethodGet, "profiles", q.Encode(), nil, "")
	if err != nil {
		return core.User{}, err
	}
	raw, err := rows(data)
	if err != nil {
		return core.User{}, err
	}
	if len(raw) == 0 {
		return core.User{}, store.ErrNotFound
	}
	return store.DecodeUser(raw[0])
}
