package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"little-stars/internal/domain"
	"little-stars/internal/session"
)

// HTTPClient talks to the auth server's JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type loginResponse struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

type userPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Class      string `json:"class"`
	Division   string `json:"division"`
	RollNumber string `json:"roll_number"`
	PhotoURL   string `json:"photo_url"`
	ParentName string `json:"parent_name"`
	Mobile     string `json:"mobile"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Authenticate(ctx context.Context, identifier, code string) (*domain.User, string, error) {
	body, err := json.Marshal(loginRequest{Mobile: identifier, OTP: code})
	if err != nil {
		return nil, "", fmt.Errorf("encode login request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", "", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusBadRequest:
		return nil, "", fmt.Errorf("%s: %w", readError(resp), session.ErrInvalidCredentials)
	default:
		return nil, "", fmt.Errorf("%w: login returned %d: %s", session.ErrNetwork, resp.StatusCode, readError(resp))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("%w: decode login response: %w", session.ErrNetwork, err)
	}
	if out.Token == "" || out.User.ID == "" {
		return nil, "", fmt.Errorf("%w: login response without session", session.ErrNetwork)
	}

	user := out.User.toDomain()
	return &user, out.Token, nil
}

func (c *HTTPClient) TerminateSession(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("logout returned %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrNetwork, err)
	}
	return resp, nil
}

func readError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return resp.Status
	}
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}
	return resp.Status
}

func (p userPayload) toDomain() domain.User {
	role := domain.Role(p.Role)
	if !role.Valid() {
		role = domain.RoleStudent
	}
	return domain.User{
		ID:         p.ID,
		Name:       p.Name,
		Role:       role,
		Class:      p.Class,
		Division:   p.Division,
		RollNumber: p.RollNumber,
		PhotoURL:   p.PhotoURL,
		ParentName: p.ParentName,
		Mobile:     p.Mobile,
	}
}

var _ session.Endpoint = (*HTTPClient)(nil)
