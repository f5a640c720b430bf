package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteAuthenticator signs users in against the hosted auth endpoint that
// fronts the remote row store. The access token it returns is what the rest
// adapter later attaches to row requests.
type RemoteAuthenticator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRemoteAuthenticator(baseURL, apiKey string) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type remoteAuthRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type remoteAuthResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Metadata struct {
			DisplayName string `json:"display_name"`
		} `json:"user_metadata"`
	} `json:"user"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (a *RemoteAuthenticator) SignIn(ctx context.Context, email, password string) (Session, error) {
	return a.post(ctx, "/auth/v1/token?grant_type=password", remoteAuthRequest{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	})
}

func (a *RemoteAuthenticator) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	if len(password) < 6 {
		return Session{}, ErrWeakPassword
	}
	return a.post(ctx, "/auth/v1/signup", remoteAuthRequest{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Data:     map[string]any{"display_name": displayName},
	})
}

func (a *RemoteAuthenticator) post(ctx context.Context, path string, payload remoteAuthRequest) (Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Session{}, fmt.Errorf("encode auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("read auth response: %w", err)
	}

	var parsed remoteAuthResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Session{}, fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Session{}, mapRemoteAuthError(resp.StatusCode, parsed)
	}
	if parsed.AccessToken == "" || parsed.User.ID == "" {
		return Session{}, fmt.Errorf("auth endpoint returned an incomplete session")
	}

	return Session{
		UserID:      parsed.User.ID,
		Email:       parsed.User.Email,
		DisplayName: parsed.User.Metadata.DisplayName,
		AccessToken: parsed.AccessToken,
	}, nil
}

func mapRemoteAuthError(status int, parsed remoteAuthResponse) error {
	msg := parsed.ErrorDescription
	if msg == "" {
		msg = parsed.Msg
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid login credentials"):
		return ErrInvalidCredentials
	case strings.Contains(lower, "already registered"):
		return ErrEmailExists
	case strings.Contains(lower, "password"):
		return ErrWeakPassword
	case msg != "":
		return fmt.Errorf("auth endpoint: %s", msg)
	default:
		return fmt.Errorf("auth endpoint returned status %d", status)
	}
}
