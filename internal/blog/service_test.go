package blog

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	posts    map[string]*Post
	comments []Comment
	nextID   uint

	listBetweenStart time.Time
	listBetweenEnd   time.Time
}

var _ Repository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	return &fakeRepository{posts: map[string]*Post{}, nextID: 1}
}

func (f *fakeRepository) GetBySlug(_ context.Context, slug string) (*Post, error) {
	return f.posts[slug], nil
}

func (f *fakeRepository) Create(_ context.Context, post *Post) error {
	post.ID = f.nextID
	f.nextID++
	f.posts[post.Slug] = post
	return nil
}

func (f *fakeRepository) Delete(_ context.Context, id uint) error {
	for slug, post := range f.posts {
		if post.ID == id {
			delete(f.posts, slug)
		}
	}
	return nil
}

func (f *fakeRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	_, ok := f.posts[slug]
	return ok, nil
}

func (f *fakeRepository) ListRecent(_ context.Context, _ int) ([]Post, error) {
	var posts []Post
	for _, post := range f.posts {
		posts = append(posts, *post)
	}
	return posts, nil
}

func (f *fakeRepository) ListBetween(_ context.Context, start, end time.Time) ([]Post, error) {
	f.listBetweenStart = start
	f.listBetweenEnd = end

	var posts []Post
	for _, post := range f.posts {
		if !post.CreatedAt.Before(start) && post.CreatedAt.Before(end) {
			posts = append(posts, *post)
		}
	}
	return posts, nil
}

func (f *fakeRepository) AddComment(_ context.Context, comment *Comment) error {
	comment.ID = f.nextID
	f.nextID++
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeRepository) CommentsForPost(_ context.Context, postID uint) ([]Comment, error) {
	var comments []Comment
	for _, comment := range f.comments {
		if comment.PostID == postID {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func newTestService(t *testing.T) (*fakeRepository, Service) {
	t.Helper()

	repo := newFakeRepository()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return repo, svc
}

func TestCreatePostDerivesSlugFromTitle(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)

	post, err := svc.CreatePost(context.Background(), PostInput{
		Title:    "Hello, Yossarian!",
		Body:     "A body.",
		AuthorID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-yossarian", post.Slug)
}

func TestCreatePostSuffixesDuplicateSlugs(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreatePost(ctx, PostInput{Title: "Recurring Dream", Body: "x", AuthorID: 1})
	require.NoError(t, err)

	second, err := svc.CreatePost(ctx, PostInput{Title: "Recurring Dream", Body: "y", AuthorID: 1})
	require.NoError(t, err)

	assert.Equal(t, "recurring-dream", first.Slug)
	assert.Equal(t, "recurring-dream-2", second.Slug)

	third, err := svc.CreatePost(ctx, PostInput{Title: "Recurring Dream", Body: "z", AuthorID: 1})
	require.NoError(t, err)
	assert.Equal(t, "recurring-dream-3", third.Slug)
}

func TestCreatePostSlugifiesExplicitSlug(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)

	post, err := svc.CreatePost(context.Background(), PostInput{
		Title:    "Anything",
		Slug:     "My Chosen Slug",
		Body:     "x",
		AuthorID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "my-chosen-slug", post.Slug)
}

func TestCreatePostRejectsMissingFields(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, PostInput{Body: "x", AuthorID: 1})
	assert.Error(t, err)

	_, err = svc.CreatePost(ctx, PostInput{Title: "t", AuthorID: 1})
	assert.Error(t, err)

	_, err = svc.CreatePost(ctx, PostInput{Title: "t", Body: "x"})
	assert.Error(t, err)
}

func TestAddCommentLinksToPostAndStripsMarkup(t *testing.T) {
	t.Parallel()

	repo, svc := newTestService(t)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, PostInput{Title: "Target", Body: "x", AuthorID: 1})
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, post.Slug, CommentInput{
		Name:  "Ada",
		Email: "ada@example.com",
		Body:  "<script>alert(1)</script>Nice <b>post</b>!",
	})
	require.NoError(t, err)

	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, "alert(1)Nice post!", comment.Body)
	require.Len(t, repo.comments, 1)
}

func TestAddCommentToMissingPost(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)

	_, err := svc.AddComment(context.Background(), "nowhere", CommentInput{
		Name:  "Ada",
		Email: "ada@example.com",
		Body:  "Hello",
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrPostNotFound))
}

func TestArchiveMonthUsesCalendarWindow(t *testing.T) {
	t.Parallel()

	repo, svc := newTestService(t)

	_, err := svc.ArchiveMonth(context.Background(), 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), repo.listBetweenStart)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), repo.listBetweenEnd)
}

func TestArchiveMonthRejectsBadMonth(t *testing.T) {
	t.Parallel()

	_, svc := newTestService(t)

	_, err := svc.ArchiveMonth(context.Background(), 2024, 13)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidArchiveWindow))
}

func TestISOWeekWindowStartsOnMonday(t *testing.T) {
	t.Parallel()

	start, end, err := ISOWeekWindow(2024, 1)
	require.NoError(t, err)

	// ISO week 1 of 2024 runs Monday 1 January through Sunday 7 January.
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Monday, start.Weekday())
}

func TestISOWeekWindowHandlesWeek53(t *testing.T) {
	t.Parallel()

	// 2020 has 53 ISO weeks; 2023 does not.
	start, _, err := ISOWeekWindow(2020, 53)
	require.NoError(t, err)
	isoYear, isoWeek := start.ISOWeek()
	assert.Equal(t, 2020, isoYear)
	assert.Equal(t, 53, isoWeek)

	_, _, err = ISOWeekWindow(2023, 53)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidArchiveWindow))
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "just words", "just words"},
		{"simple markup", "a <em>quiet</em> word", "a quiet word"},
		{"nested markup", "<div><p>deep</p></div>", "deep"},
		{"whitespace trimmed", "  padded  ", "padded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripTags(tc.in))
		})
	}
}
