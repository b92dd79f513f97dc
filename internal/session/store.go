// Package session holds the client-side authentication state of the parent
// app and is the only place allowed to change it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"little-stars/internal/auth"
	"little-stars/internal/domain"
)

var (
	// ErrInvalidCredentials means the endpoint rejected the identifier/code pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetwork means the endpoint could not be reached or answered garbage.
	ErrNetwork = errors.New("network failure")
	// ErrSuperseded is returned by a Login whose result was discarded because a
	// newer Login or Logout started while it was in flight.
	ErrSuperseded = errors.New("superseded by a newer session operation")
)

// Endpoint is the remote side of authentication.
type Endpoint interface {
	Authenticate(ctx context.Context, identifier, code string) (*domain.User, string, error)
	TerminateSession(ctx context.Context, token string) error
}

// Persister keeps the signed-in session across restarts. Load returns nil
// when nothing is saved.
type Persister interface {
	Load(ctx context.Context) (*domain.SavedSession, error)
	Save(ctx context.Context, saved domain.SavedSession) error
	Clear(ctx context.Context) error
}

// Snapshot is an immutable view of the session handed to observers.
type Snapshot struct {
	Status domain.SessionStatus
	User   *domain.User
	Token  string
	// Seq increases by one on every transition.
	Seq uint64
}

// Authenticated reports whether the snapshot holds a signed-in session.
func (s Snapshot) Authenticated() bool {
	return s.Status == domain.SessionAuthenticated
}

// Option configures a Store.
type Option func(*Store)

// WithPersister saves sessions on login and clears them on logout.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the store's logger. A fresh logrus logger is used otherwise.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithLogoutTimeout bounds the remote part of Logout.
func WithLogoutTimeout(d time.Duration) Option {
	return func(s *Store) { s.logoutTimeout = d }
}

// WithClock replaces time.Now for save timestamps and saved token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the session state machine:
//
//	signed_out --Login--> authenticating --ok--> authenticated
//	authenticating --fail--> signed_out
//	authenticated --Logout--> authenticating --> signed_out
//
// Results are applied in call order: every Login and Logout takes a new
// generation, and a result whose generation is no longer the latest is
// dropped.
type Store struct {
	endpoint      Endpoint
	persister     Persister
	logger        logrus.FieldLogger
	logoutTimeout time.Duration
	now           func() time.Time

	mu     sync.Mutex
	status domain.SessionStatus
	user   *domain.User
	token  string
	gen    uint64
	seq    uint64

	// persistMu orders writes to the persister with the generation check.
	persistMu sync.Mutex

	obs observers
}

// NewStore returns a signed-out store that authenticates against endpoint.
func NewStore(endpoint Endpoint, opts ...Option) *Store {
	s := &Store{
		endpoint:      endpoint,
		logoutTimeout: 10 * time.Second,
		now:           time.Now,
		status:        domain.SessionSignedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the current session status.
func (s *Store) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// User returns a copy of the signed-in profile, or nil.
func (s *Store) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Subscribe registers fn for every transition and delivers the current
// snapshot to it before returning. Later deliveries are serial and in
// transition order, and never repeat or precede that first snapshot. fn may
// call back into the store; such nested transitions are delivered after fn
// returns.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	current := s.snapshotLocked()
	id := s.obs.add(fn, current.Seq)
	s.mu.Unlock()

	fn(current)
	s.obs.settle(id)

	var once sync.Once
	return func() {
		once.Do(func() { s.obs.remove(id) })
	}
}

// Login authenticates against the endpoint. The returned error matches
// ErrInvalidCredentials, ErrNetwork or ErrSuperseded under errors.Is.
func (s *Store) Login(ctx context.Context, identifier, code string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.transitionLocked(domain.SessionAuthenticating, nil, "")
	s.mu.Unlock()
	s.obs.drain()

	log := s.logger.WithField("gen", gen)
	log.Debug("login started")

	user, token, err := s.endpoint.Authenticate(ctx, identifier, code)
	if err == nil && (user == nil || token == "") {
		err = fmt.Errorf("%w: endpoint returned an incomplete session", ErrNetwork)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.Debug("login result discarded, superseded")
		return ErrSuperseded
	}
	if err != nil {
		s.transitionLocked(domain.SessionSignedOut, nil, "")
		s.mu.Unlock()
		s.obs.drain()
		err = classify(err)
		log.WithError(err).Info("login failed")
		return err
	}
	user = user.Clone()
	s.transitionLocked(domain.SessionAuthenticated, user, token)
	s.mu.Unlock()
	s.obs.drain()

	log.WithField("user", user.ID).Info("login succeeded")
	s.save(ctx, gen, domain.SavedSession{User: user.Clone(), Token: token, SavedAt: s.now().UTC()})
	return nil
}

// Logout ends the session. It leaves the store signed out whatever the
// endpoint answers and never returns an error. Calling it while signed out
// changes nothing. A Login started while the remote call is running is newer
// and wins: Logout then leaves the state to that Login.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.status == domain.SessionSignedOut {
		s.mu.Unlock()
		return nil
	}
	token := s.token
	s.gen++
	gen := s.gen
	if token == "" {
		// a login is in flight; bumping gen already discards its result
		s.transitionLocked(domain.SessionSignedOut, nil, "")
		s.mu.Unlock()
		s.obs.drain()
		s.clear(ctx)
		s.logger.WithField("gen", gen).Info("pending login abandoned")
		return nil
	}
	s.transitionLocked(domain.SessionAuthenticating, nil, "")
	s.mu.Unlock()
	s.obs.drain()

	s.clear(ctx)

	remoteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
	if err := s.endpoint.TerminateSession(remoteCtx, token); err != nil {
		s.logger.WithError(err).Warn("terminate session failed, signing out locally")
	}
	cancel()

	s.mu.Lock()
	if gen == s.gen {
		s.transitionLocked(domain.SessionSignedOut, nil, "")
	}
	s.mu.Unlock()
	s.obs.drain()

	s.logger.WithField("gen", gen).Info("logged out")
	return nil
}

// Restore signs back in from the persister, if one is configured and holds a
// session that has not expired. It reports whether a session was restored.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.persister == nil {
		return false, nil
	}
	saved, err := s.persister.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load saved session: %w", err)
	}
	if saved == nil {
		return false, nil
	}
	if saved.User == nil || saved.Token == "" {
		s.clear(ctx)
		return false, nil
	}
	if exp, ok := auth.ExpiryUnverified(saved.Token); ok && !exp.After(s.now()) {
		s.logger.Info("saved session expired")
		s.clear(ctx)
		return false, nil
	}

	s.mu.Lock()
	if s.status != domain.SessionSignedOut {
		s.mu.Unlock()
		return false, nil
	}
	s.gen++
	s.transitionLocked(domain.SessionAuthenticated, saved.User.Clone(), saved.Token)
	s.mu.Unlock()
	s.obs.drain()

	s.logger.WithField("user", saved.User.ID).Info("session restored")
	return true, nil
}

func (s *Store) transitionLocked(status domain.SessionStatus, user *domain.User, token string) {
	s.status = status
	s.user = user
	s.token = token
	s.seq++
	s.obs.enqueue(s.snapshotLocked())
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Status: s.status,
		User:   s.user.Clone(),
		Token:  s.token,
		Seq:    s.seq,
	}
}

func (s *Store) currentGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Store) save(ctx context.Context, gen uint64, saved domain.SavedSession) {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if gen != s.currentGen() {
		return
	}
	if err := s.persister.Save(context.WithoutCancel(ctx), saved); err != nil {
		s.logger.WithError(err).Warn("save session")
	}
}

func (s *Store) clear(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.persister.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).Warn("clear saved session")
	}
}

func classify(err error) error {
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
