package user

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials indicates the username/password pair did not match a
// registered account.
var ErrInvalidCredentials = eris.New("invalid credentials")

// Store defines account operations backed by the database.
type Store interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetByID(ctx context.Context, id uint) (*User, error)
	Create(ctx context.Context, username, email, password string, isAdmin bool) (*User, error)
	EnsureAdmin(ctx context.Context, username, email, password string) error
}

// GormStore persists users using a Gorm database connection.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ Store = (*GormStore)(nil)

// NewStore constructs a Gorm-backed user store.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*GormStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormStore{db: db, logger: logger}, nil
}

// Migrate applies the user schema using Gorm's AutoMigrate.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		if logger != nil {
			logger.WithField("error", err.Error()).Error("user schema migration failed")
		}
		return eris.Wrap(err, "auto migrating user schema")
	}

	return nil
}

// Authenticate verifies the username/password pair and returns the matching
// user. A missing user and a wrong password are indistinguishable to callers.
func (s *GormStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || password == "" {
		return nil, eris.Wrap(ErrInvalidCredentials, "missing username or password")
	}

	var account User
	err := s.db.WithContext(ctx).First(&account, "username = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(ErrInvalidCredentials, "username %s", trimmed)
		}
		s.logError(logrus.Fields{"username": trimmed}, err, "fetching user by username")
		return nil, eris.Wrapf(err, "fetching user by username: %s", trimmed)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, eris.Wrapf(ErrInvalidCredentials, "username %s", trimmed)
	}

	return &account, nil
}

// GetByID returns the user for the provided id or nil when not found.
func (s *GormStore) GetByID(ctx context.Context, id uint) (*User, error) {
	if id == 0 {
		return nil, eris.New("user id is required")
	}

	var account User
	err := s.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"user_id": id}, err, "fetching user by id")
		return nil, eris.Wrapf(err, "fetching user by id: %d", id)
	}

	return &account, nil
}

// Create registers a new account with a bcrypt-hashed password.
func (s *GormStore) Create(ctx context.Context, username, email, password string, isAdmin bool) (*User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return nil, eris.New("username is required")
	}
	if password == "" {
		return nil, eris.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "hashing password")
	}

	account := &User{
		Username:     trimmed,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		s.logError(logrus.Fields{"username": trimmed}, err, "creating user")
		return nil, eris.Wrapf(err, "creating user: %s", trimmed)
	}

	return account, nil
}

// EnsureAdmin seeds the administrator account from configuration when it does
// not exist yet. Blank credentials skip seeding entirely.
func (s *GormStore) EnsureAdmin(ctx context.Context, username, email, password string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || password == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", trimmed).Count(&count).Error; err != nil {
		return eris.Wrapf(err, "checking for admin account: %s", trimmed)
	}
	if count > 0 {
		return nil
	}

	if _, err := s.Create(ctx, trimmed, email, password, true); err != nil {
		return eris.Wrapf(err, "seeding admin account: %s", trimmed)
	}

	if s.logger != nil {
		s.logger.WithField("username", trimmed).Info("seeded admin account")
	}

	return nil
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
