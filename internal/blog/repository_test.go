package blog

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"marginalia/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestGetBySlugReturnsNilForMissingPost(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)

	post, err := repo.GetBySlug(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if post != nil {
		t.Fatalf("expected nil post for missing slug, got %#v", post)
	}
}

func TestCreateAndGetBySlugRoundTrip(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	original := &Post{Title: "Hello", Slug: " hello ", Body: "First post.", AuthorID: 1}
	if err := repo.Create(ctx, original); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if original.Slug != "hello" {
		t.Fatalf("expected slug trimmed to 'hello', got %q", original.Slug)
	}

	stored, err := repo.GetBySlug(ctx, "hello")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored post to be present")
	}
	if stored.Title != "Hello" || stored.Body != "First post." {
		t.Fatalf("expected post fields to be preserved, got %#v", stored)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected creation timestamp to be set")
	}
}

func TestSlugExists(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &Post{Title: "Taken", Slug: "taken", Body: "x", AuthorID: 1}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	exists, err := repo.SlugExists(ctx, "taken")
	if err != nil {
		t.Fatalf("SlugExists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected slug 'taken' to exist")
	}

	exists, err = repo.SlugExists(ctx, "free")
	if err != nil {
		t.Fatalf("SlugExists returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected slug 'free' to be free")
	}
}

func TestListBetweenFiltersByCreationWindow(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	inside := &Post{Title: "Inside", Slug: "inside", Body: "x", AuthorID: 1}
	inside.CreatedAt = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	before := &Post{Title: "Before", Slug: "before", Body: "x", AuthorID: 1}
	before.CreatedAt = time.Date(2024, time.February, 28, 12, 0, 0, 0, time.UTC)

	after := &Post{Title: "After", Slug: "after", Body: "x", AuthorID: 1}
	after.CreatedAt = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	for _, post := range []*Post{inside, before, after} {
		if err := repo.Create(ctx, post); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	posts, err := repo.ListBetween(ctx, start, end)
	if err != nil {
		t.Fatalf("ListBetween returned error: %v", err)
	}

	if len(posts) != 1 {
		t.Fatalf("expected 1 post in window, got %d", len(posts))
	}
	if posts[0].Slug != "inside" {
		t.Fatalf("expected post 'inside', got %q", posts[0].Slug)
	}
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	older := &Post{Title: "Older", Slug: "older", Body: "x", AuthorID: 1}
	older.CreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	newer := &Post{Title: "Newer", Slug: "newer", Body: "x", AuthorID: 1}
	newer.CreatedAt = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	for _, post := range []*Post{older, newer} {
		if err := repo.Create(ctx, post); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	posts, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Slug != "newer" || posts[1].Slug != "older" {
		t.Fatalf("expected newest first, got %q then %q", posts[0].Slug, posts[1].Slug)
	}
}

func TestCommentsForPostOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	post := &Post{Title: "Discussed", Slug: "discussed", Body: "x", AuthorID: 1}
	if err := repo.Create(ctx, post); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first := &Comment{Name: "Ada", Email: "ada@example.com", Body: "First", PostID: post.ID}
	first.CreatedAt = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	second := &Comment{Name: "Brian", Email: "brian@example.com", Body: "Second", PostID: post.ID}
	second.CreatedAt = time.Date(2024, time.May, 1, 11, 0, 0, 0, time.UTC)

	// Insert out of order to exercise the sort.
	for _, comment := range []*Comment{second, first} {
		if err := repo.AddComment(ctx, comment); err != nil {
			t.Fatalf("AddComment returned error: %v", err)
		}
	}

	comments, err := repo.CommentsForPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("CommentsForPost returned error: %v", err)
	}

	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].Body != "First" || comments[1].Body != "Second" {
		t.Fatalf("expected oldest comment first, got %q then %q", comments[0].Body, comments[1].Body)
	}
}

func TestDeleteCascadesToComments(t *testing.T) {
	t.Parallel()

	repo := setupRepository(t)
	ctx := context.Background()

	post := &Post{Title: "Doomed", Slug: "doomed", Body: "x", AuthorID: 1}
	if err := repo.Create(ctx, post); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	comment := &Comment{Name: "Ada", Email: "ada@example.com", Body: "Bye", PostID: post.ID}
	if err := repo.AddComment(ctx, comment); err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}

	if err := repo.Delete(ctx, post.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	stored, err := repo.GetBySlug(ctx, "doomed")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected post to be gone, got %#v", stored)
	}

	comments, err := repo.CommentsForPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("CommentsForPost returned error: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected comments to cascade away, got %d", len(comments))
	}
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}
