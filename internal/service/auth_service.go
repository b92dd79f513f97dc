package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"little-stars/internal/auth"
	"little-stars/internal/domain"
	"little-stars/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that the mobile number or one-time code was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionRevoked is returned for tokens whose session was ended.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrStudentNotFound is returned when no student matches the requested id.
	ErrStudentNotFound = errors.New("student not found")
)

// AuthConfig holds token and one-time code settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
	// DemoCode is the one-time code every student may sign in with until an
	// SMS gateway exists.
	DemoCode string
	// CodeCost is the bcrypt cost for the stored code hash; zero means
	// bcrypt.DefaultCost.
	CodeCost int
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService issues, verifies and ends parent app sessions.
type AuthService interface {
	Authenticate(ctx context.Context, mobile, code string) (*LoginResult, error)
	TerminateSession(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*domain.User, error)
	GetStudent(ctx context.Context, id string) (*domain.User, error)
}

type authService struct {
	students    repository.StudentRepository
	sessions    repository.SessionRepository
	revocations repository.RevocationCache
	cfg         AuthConfig
	codeHash    []byte
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewAuthService builds the service. revocations may be nil, in which case
// every verification goes to the session repository.
func NewAuthService(students repository.StudentRepository, sessions repository.SessionRepository, revocations repository.RevocationCache, cfg AuthConfig, logger logrus.FieldLogger) (AuthService, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	code := strings.TrimSpace(cfg.DemoCode)
	if code == "" {
		return nil, errors.New("demo code is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}

	if cfg.CodeCost == 0 {
		cfg.CodeCost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), cfg.CodeCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo code: %w", err)
	}
	cfg.DemoCode = ""

	return &authService{
		students:    students,
		sessions:    sessions,
		revocations: revocations,
		cfg:         cfg,
		codeHash:    hash,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, mobile, code string) (*LoginResult, error) {
	mobile = strings.TrimSpace(mobile)
	code = strings.TrimSpace(code)
	if mobile == "" || code == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(s.codeHash, []byte(code)); err != nil {
		return nil, ErrInvalidCredentials
	}

	student, err := s.students.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	sessionID := uuid.NewString()
	token, exp, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.Issuer, s.cfg.TokenTTL, student.ID, student.Role, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, &domain.IssuedSession{
		ID:        sessionID,
		UserID:    student.ID,
		TokenHash: hashToken(token),
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"student": student.ID, "session": sessionID}).Info("session issued")
	return &LoginResult{User: student, Token: token, ExpiresAt: exp}, nil
}

// TerminateSession revokes the session behind token. Expired tokens are still
// accepted so a client can always sign out cleanly.
func (s *authService) TerminateSession(ctx context.Context, token string) error {
	claims, err := auth.ParseTokenAllowExpired(s.cfg.JWTSecret, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	now := s.now()
	if err := s.sessions.Revoke(ctx, claims.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if s.revocations != nil && claims.ExpiresAt != nil {
		if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(now)); err != nil {
			s.logger.WithError(err).Warn("cache session revocation")
		}
	}

	s.logger.WithFields(logrus.Fields{"student": claims.Subject, "session": claims.ID}).Info("session terminated")
	return nil
}

func (s *authService) Verify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrInvalidCredentials
	}
	claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("revocation cache lookup, falling back to database")
		case revoked:
			return nil, ErrSessionRevoked
		}
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if session.RevokedAt != nil {
		return nil, ErrSessionRevoked
	}
	if session.TokenHash != hashToken(token) || session.UserID != claims.Subject || !session.Active(s.now()) {
		return nil, ErrInvalidCredentials
	}

	return s.GetStudent(ctx, claims.Subject)
}

func (s *authService) GetStudent(ctx context.Context, id string) (*domain.User, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
