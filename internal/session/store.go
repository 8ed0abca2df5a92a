package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store manages server-side sessions.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	BindUser(ctx context.Context, sess *Session, userID uint) error
	UnbindUser(ctx context.Context, sess *Session) error
	SetCommenter(ctx context.Context, sess *Session, name, email, website string) error
	PruneExpired(ctx context.Context) (int64, error)
}

// GormStore persists sessions using a Gorm database connection.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*GormStore)(nil)

const defaultTTL = 30 * 24 * time.Hour

// NewStore constructs a Gorm-backed session store with the provided lifetime.
func NewStore(db *gorm.DB, logger *logrus.Logger, ttl time.Duration) (*GormStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &GormStore{db: db, logger: logger, ttl: ttl, now: time.Now}, nil
}

// Migrate applies the session schema using Gorm's AutoMigrate.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Session{}); err != nil {
		if logger != nil {
			logger.WithField("error", err.Error()).Error("session schema migration failed")
		}
		return eris.Wrap(err, "auto migrating session schema")
	}

	return nil
}

// Create issues a fresh anonymous session with a random token.
func (s *GormStore) Create(ctx context.Context) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		s.logError(nil, err, "creating session")
		return nil, eris.Wrap(err, "creating session")
	}

	return sess, nil
}

// GetByToken returns the live session for the token, or nil when the token is
// unknown or the session has expired. Expired rows are removed on the spot.
func (s *GormStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil
	}

	var sess Session
	err := s.db.WithContext(ctx).First(&sess, "token = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"token": trimmed}, err, "fetching session by token")
		return nil, eris.Wrap(err, "fetching session by token")
	}

	if sess.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Unscoped().Delete(&sess).Error; err != nil {
			s.logError(logrus.Fields{"token": trimmed}, err, "deleting expired session")
		}
		return nil, nil
	}

	return &sess, nil
}

// BindUser attaches a logged-in user to the session.
func (s *GormStore) BindUser(ctx context.Context, sess *Session, userID uint) error {
	if sess == nil {
		return eris.New("session is nil")
	}
	if userID == 0 {
		return eris.New("user id is required")
	}

	sess.UserID = &userID
	if err := s.db.WithContext(ctx).Model(sess).Update("user_id", userID).Error; err != nil {
		s.logError(logrus.Fields{"user_id": userID}, err, "binding session to user")
		return eris.Wrap(err, "binding session to user")
	}

	return nil
}

// UnbindUser detaches the user from the session. The commenter prefill values
// survive logout on purpose.
func (s *GormStore) UnbindUser(ctx context.Context, sess *Session) error {
	if sess == nil {
		return eris.New("session is nil")
	}

	sess.UserID = nil
	if err := s.db.WithContext(ctx).Model(sess).Update("user_id", nil).Error; err != nil {
		s.logError(nil, err, "unbinding session user")
		return eris.Wrap(err, "unbinding session user")
	}

	return nil
}

// SetCommenter stores the commenter identity triple used to prefill the
// comment form on later visits.
func (s *GormStore) SetCommenter(ctx context.Context, sess *Session, name, email, website string) error {
	if sess == nil {
		return eris.New("session is nil")
	}

	sess.CommenterName = strings.TrimSpace(name)
	sess.CommenterEmail = strings.TrimSpace(email)
	sess.CommenterWebsite = strings.TrimSpace(website)

	updates := map[string]interface{}{
		"commenter_name":    sess.CommenterName,
		"commenter_email":   sess.CommenterEmail,
		"commenter_website": sess.CommenterWebsite,
	}
	if err := s.db.WithContext(ctx).Model(sess).Updates(updates).Error; err != nil {
		s.logError(nil, err, "storing commenter identity")
		return eris.Wrap(err, "storing commenter identity")
	}

	return nil
}

// PruneExpired removes every expired session row and reports how many went.
func (s *GormStore) PruneExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().
		Where("expires_at <= ?", s.now()).
		Delete(&Session{})
	if result.Error != nil {
		s.logError(nil, result.Error, "pruning expired sessions")
		return 0, eris.Wrap(result.Error, "pruning expired sessions")
	}

	return result.RowsAffected, nil
}

func (s *GormStore) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
