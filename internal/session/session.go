package session

import (
	"time"

	"gorm.io/gorm"
)

// Session is a server-side session row keyed by a token the client carries in
// a cookie. It may be bound to a logged-in user and remembers the commenter
// identity used to prefill the comment form.
type Session struct {
	gorm.Model
	Token            string `gorm:"size:36;uniqueIndex:idx_sessions_token;not null"`
	UserID           *uint  `gorm:"index"`
	CommenterName    string `gorm:"size:120"`
	CommenterEmail   string `gorm:"size:254"`
	CommenterWebsite string `gorm:"size:255"`
	ExpiresAt        time.Time
}

// TableName defines the table name for the Session model.
func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
