package user

import "gorm.io/gorm"

// User represents a registered account able to log in. Only administrators
// may author posts.
type User struct {
	gorm.Model
	Username     string `gorm:"size:150;uniqueIndex:idx_users_username;not null"`
	Email        string `gorm:"size:254"`
	PasswordHash string `gorm:"size:255;not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
}

// TableName defines the table name for the User model.
func (User) TableName() string {
	return "users"
}
