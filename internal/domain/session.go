package domain

import "time"

// SessionStatus is the client-side authentication state.
type SessionStatus string

const (
	SessionSignedOut      SessionStatus = "signed_out"
	SessionAuthenticating SessionStatus = "authenticating"
	SessionAuthenticated  SessionStatus = "authenticated"
)

// IssuedSession is the server-side record of a token handed to a client.
type IssuedSession struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the session can still authorize requests at now.
func (s *IssuedSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SavedSession is what a client keeps on disk so a restart does not sign the
// user out.
type SavedSession struct {
	User    *User
	Token   string
	SavedAt time.Time
}
