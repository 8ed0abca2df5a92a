package blog

import "gorm.io/gorm"

// Post represents a published blog entry persisted in the database.
type Post struct {
	gorm.Model
	Title    string    `gorm:"size:255;not null"`
	Slug     string    `gorm:"size:255;uniqueIndex:idx_posts_slug;not null"`
	Body     string    `gorm:"type:text;not null"`
	AuthorID uint      `gorm:"index;not null"`
	Comments []Comment `gorm:"constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the Post model.
func (Post) TableName() string {
	return "posts"
}

// Comment represents a reader comment attached to a single post.
type Comment struct {
	gorm.Model
	Name    string `gorm:"size:120;not null"`
	Email   string `gorm:"size:254;not null"`
	Website string `gorm:"size:255"`
	Body    string `gorm:"type:text;not null"`
	PostID  uint   `gorm:"index;not null"`
}

// TableName defines the table name for the Comment model.
func (Comment) TableName() string {
	return "comments"
}
