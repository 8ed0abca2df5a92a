package blog

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for posts and comments.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]Post, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]Post, error)
	AddComment(ctx context.Context, comment *Comment) error
	CommentsForPost(ctx context.Context, postID uint) ([]Comment, error)
}

// GormRepository persists posts and comments using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// GetBySlug returns the post for the provided slug or nil when not found.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var post Post
	err := r.db.WithContext(ctx).First(&post, "slug = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching post by slug")
		return nil, eris.Wrapf(err, "fetching post by slug: %s", trimmed)
	}

	return &post, nil
}

// Create inserts a new post. The slug must already be set and unique.
func (r *GormRepository) Create(ctx context.Context, post *Post) error {
	if post == nil {
		return eris.New("post is nil")
	}

	if strings.TrimSpace(post.Slug) == "" {
		return eris.New("post slug is required")
	}
	post.Slug = strings.TrimSpace(post.Slug)

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.logError(logrus.Fields{"slug": post.Slug}, err, "creating post")
		return eris.Wrapf(err, "creating post: %s", post.Slug)
	}

	return nil
}

// Delete removes a post permanently. Comment rows follow via the cascading
// foreign key, so the delete is issued unscoped rather than soft.
func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return eris.New("post id is required")
	}

	if err := r.db.WithContext(ctx).Unscoped().Delete(&Post{}, id).Error; err != nil {
		r.logError(logrus.Fields{"post_id": id}, err, "deleting post")
		return eris.Wrapf(err, "deleting post %d", id)
	}

	return nil
}

// SlugExists reports whether any post already uses the provided slug.
func (r *GormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return false, eris.New("slug is required")
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&Post{}).Where("slug = ?", trimmed).Count(&count).Error; err != nil {
		r.logError(logrus.Fields{"slug": trimmed}, err, "counting posts by slug")
		return false, eris.Wrapf(err, "counting posts by slug: %s", trimmed)
	}

	return count > 0, nil
}

// ListRecent returns the newest posts first, capped at limit.
func (r *GormRepository) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	var posts []Post

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&posts).Error; err != nil {
		r.logError(nil, err, "listing recent posts")
		return nil, eris.Wrap(err, "listing recent posts")
	}

	return posts, nil
}

// ListBetween returns posts created inside [start, end), newest first.
func (r *GormRepository) ListBetween(ctx context.Context, start, end time.Time) ([]Post, error) {
	if !start.Before(end) {
		return nil, eris.New("start must be before end")
	}

	var posts []Post
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		r.logError(logrus.Fields{"start": start, "end": end}, err, "listing posts in window")
		return nil, eris.Wrap(err, "listing posts in window")
	}

	return posts, nil
}

// AddComment inserts a comment. The post linkage must already be set.
func (r *GormRepository) AddComment(ctx context.Context, comment *Comment) error {
	if comment == nil {
		return eris.New("comment is nil")
	}
	if comment.PostID == 0 {
		return eris.New("comment post id is required")
	}

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.logError(logrus.Fields{"post_id": comment.PostID}, err, "creating comment")
		return eris.Wrapf(err, "creating comment on post %d", comment.PostID)
	}

	return nil
}

// CommentsForPost returns the comments for a post, oldest first.
func (r *GormRepository) CommentsForPost(ctx context.Context, postID uint) ([]Comment, error) {
	if postID == 0 {
		return nil, eris.New("post id is required")
	}

	var comments []Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		r.logError(logrus.Fields{"post_id": postID}, err, "listing comments for post")
		return nil, eris.Wrapf(err, "listing comments for post %d", postID)
	}

	return comments, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
