package authclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"little-stars/internal/domain"
	"little-stars/internal/session"
)

const (
	DemoCode  = "1234"
	DemoToken = "mock-jwt-token-xyz-123"
)

// Mock is an offline endpoint that accepts a single one-time code for any
// identifier and hands out the demo student.
type Mock struct {
	LoginDelay  time.Duration
	LogoutDelay time.Duration
	Code        string
	User        domain.User
	Token       string
	// TerminateErr, when set, is returned by every TerminateSession call.
	TerminateErr error

	mu         sync.Mutex
	terminated []string
}

func NewMock() *Mock {
	return &Mock{
		LoginDelay:  time.Second,
		LogoutDelay: 500 * time.Millisecond,
		Code:        DemoCode,
		User:        domain.DemoStudent(),
		Token:       DemoToken,
	}
}

func (m *Mock) Authenticate(ctx context.Context, identifier, code string) (*domain.User, string, error) {
	if err := wait(ctx, m.LoginDelay); err != nil {
		return nil, "", err
	}
	if code != m.Code {
		return nil, "", fmt.Errorf("invalid OTP: %w", session.ErrInvalidCredentials)
	}
	user := m.User
	return &user, m.Token, nil
}

func (m *Mock) TerminateSession(ctx context.Context, token string) error {
	if err := wait(ctx, m.LogoutDelay); err != nil {
		return err
	}
	m.mu.Lock()
	m.terminated = append(m.terminated, token)
	m.mu.Unlock()
	return m.TerminateErr
}

// Terminated lists the tokens TerminateSession was called with.
func (m *Mock) Terminated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.terminated...)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", session.ErrNetwork, ctx.Err())
	case <-timer.C:
		return nil
	}
}

var _ session.Endpoint = (*Mock)(nil)
