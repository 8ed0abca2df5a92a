package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines higher-level blog operations built on top of the repository.
type Service interface {
	CreatePost(ctx context.Context, input PostInput) (*Post, error)
	PostWithComments(ctx context.Context, slug string) (*Post, []Comment, error)
	AddComment(ctx context.Context, postSlug string, input CommentInput) (*Comment, error)
	RecentPosts(ctx context.Context, limit int) ([]Post, error)
	ArchiveMonth(ctx context.Context, year, month int) ([]Post, error)
	ArchiveWeek(ctx context.Context, year, week int) ([]Post, error)
}

// ErrPostNotFound indicates the requested post does not exist.
var ErrPostNotFound = eris.New("post not found")

// ErrInvalidArchiveWindow indicates the year/month or year/week pair does not
// name a real calendar window.
var ErrInvalidArchiveWindow = eris.New("invalid archive window")

const (
	defaultRecentLimit = 10
	maxSlugAttempts    = 100
)

// PostInput carries the author-supplied values for a new post. Slug may be
// blank, in which case it is derived from the title.
type PostInput struct {
	Title    string
	Slug     string
	Body     string
	AuthorID uint
}

// CommentInput carries the visitor-supplied values for a new comment.
type CommentInput struct {
	Name    string
	Email   string
	Website string
	Body    string
}

type service struct {
	repo   Repository
	logger *logrus.Logger
}

var _ Service = (*service)(nil)

// NewService wires the blog service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger) (Service, error) {
	if repo == nil {
		return nil, eris.New("blog repository is required")
	}

	return &service{repo: repo, logger: logger}, nil
}

// CreatePost validates the input, derives a unique slug when none was given,
// and persists the post. The author is taken from the input, never from any
// slug or title content.
func (s *service) CreatePost(ctx context.Context, input PostInput) (*Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, eris.New("post title is required")
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, eris.New("post body is required")
	}

	if input.AuthorID == 0 {
		return nil, eris.New("post author is required")
	}

	postSlug, err := s.resolveSlug(ctx, input.Slug, title)
	if err != nil {
		return nil, err
	}

	post := &Post{
		Title:    title,
		Slug:     postSlug,
		Body:     body,
		AuthorID: input.AuthorID,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.recordError(logrus.Fields{"slug": postSlug}, err, "persisting post")
		return nil, eris.Wrapf(err, "persisting post: %s", postSlug)
	}

	return post, nil
}

// PostWithComments loads a post by slug together with its comments, oldest
// comment first.
func (s *service) PostWithComments(ctx context.Context, postSlug string) (*Post, []Comment, error) {
	trimmed := strings.TrimSpace(postSlug)
	if trimmed == "" {
		return nil, nil, eris.New("slug is required")
	}

	post, err := s.repo.GetBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving post")
		return nil, nil, eris.Wrapf(err, "retrieving post: %s", trimmed)
	}
	if post == nil {
		return nil, nil, eris.Wrapf(ErrPostNotFound, "slug %s", trimmed)
	}

	comments, err := s.repo.CommentsForPost(ctx, post.ID)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving comments")
		return nil, nil, eris.Wrapf(err, "retrieving comments for post: %s", trimmed)
	}

	return post, comments, nil
}

// AddComment validates the input, strips markup from the body, and attaches
// the comment to the post named by slug. The linkage comes from the slug
// lookup, never from the submitted values.
func (s *service) AddComment(ctx context.Context, postSlug string, input CommentInput) (*Comment, error) {
	trimmed := strings.TrimSpace(postSlug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, eris.New("comment name is required")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, eris.New("comment email is required")
	}

	body := StripTags(input.Body)
	if body == "" {
		return nil, eris.New("comment body is required")
	}

	post, err := s.repo.GetBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "retrieving post for comment")
		return nil, eris.Wrapf(err, "retrieving post for comment: %s", trimmed)
	}
	if post == nil {
		return nil, eris.Wrapf(ErrPostNotFound, "slug %s", trimmed)
	}

	comment := &Comment{
		Name:    name,
		Email:   email,
		Website: strings.TrimSpace(input.Website),
		Body:    body,
		PostID:  post.ID,
	}

	if err := s.repo.AddComment(ctx, comment); err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "persisting comment")
		return nil, eris.Wrapf(err, "persisting comment on post: %s", trimmed)
	}

	return comment, nil
}

// RecentPosts returns the newest posts, capped at limit.
func (s *service) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	posts, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		s.recordError(nil, err, "listing recent posts")
		return nil, eris.Wrap(err, "listing recent posts")
	}

	return posts, nil
}

// ArchiveMonth returns the posts created inside the given calendar month.
func (s *service) ArchiveMonth(ctx context.Context, year, month int) ([]Post, error) {
	start, end, err := MonthWindow(year, month)
	if err != nil {
		return nil, err
	}

	posts, err := s.repo.ListBetween(ctx, start, end)
	if err != nil {
		s.recordError(logrus.Fields{"year": year, "month": month}, err, "listing month archive")
		return nil, eris.Wrapf(err, "listing archive for %d-%02d", year, month)
	}

	return posts, nil
}

// ArchiveWeek returns the posts created inside the given ISO week.
func (s *service) ArchiveWeek(ctx context.Context, year, week int) ([]Post, error) {
	start, end, err := ISOWeekWindow(year, week)
	if err != nil {
		return nil, err
	}

	posts, err := s.repo.ListBetween(ctx, start, end)
	if err != nil {
		s.recordError(logrus.Fields{"year": year, "week": week}, err, "listing week archive")
		return nil, eris.Wrapf(err, "listing archive for %d-W%02d", year, week)
	}

	return posts, nil
}

// MonthWindow returns the [start, end) interval covering a calendar month.
func MonthWindow(year, month int) (time.Time, time.Time, error) {
	if year < 1 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, eris.Wrapf(ErrInvalidArchiveWindow, "%d-%02d", year, month)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// ISOWeekWindow returns the [start, end) interval covering an ISO week,
// starting on Monday.
func ISOWeekWindow(year, week int) (time.Time, time.Time, error) {
	if year < 1 || week < 1 || week > 53 {
		return time.Time{}, time.Time{}, eris.Wrapf(ErrInvalidArchiveWindow, "%d-W%02d", year, week)
	}

	// January 4th always falls inside ISO week 1 of its year.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	firstMonday := jan4.AddDate(0, 0, 1-weekday)

	start := firstMonday.AddDate(0, 0, (week-1)*7)
	if isoYear, isoWeek := start.ISOWeek(); isoYear != year || isoWeek != week {
		return time.Time{}, time.Time{}, eris.Wrapf(ErrInvalidArchiveWindow, "%d-W%02d", year, week)
	}

	return start, start.AddDate(0, 0, 7), nil
}

func (s *service) resolveSlug(ctx context.Context, requested, title string) (string, error) {
	base := strings.TrimSpace(requested)
	if base == "" {
		base = slug.Make(title)
	} else {
		base = slug.Make(base)
	}

	if base == "" {
		return "", eris.Errorf("cannot derive slug from title: %s", title)
	}

	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", eris.Wrapf(err, "checking slug availability: %s", candidate)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}

	return "", eris.Errorf("no free slug found for: %s", base)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil || s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
