//go:build integration

package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLPageRepository_CreateAndGetRoundTrip(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPageRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "u", "u@example.com")

	page := &Page{Title: "T", Content: "C", AuthorID: author.ID}
	if err := repo.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}
	if page.ID == 0 {
		t.Fatal("expected page id to be set")
	}

	got, err := repo.GetPageByID(ctx, page.ID)
	if err != nil {
		t.Fatalf("GetPageByID failed: %v", err)
	}
	if got.Title != "T" || got.Content != "C" || got.AuthorID != author.ID {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.AuthorName != "u" {
		t.Errorf("expected author name 'u', got '%s'", got.AuthorName)
	}
}

func TestSQLPageRepository_GetMissing(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPageRepository(db)

	if _, err := repo.GetPageByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	err := repo.UpdatePage(context.Background(), &Page{ID: 42, Title: "x", Content: "y", UpdatedAt: time.Now()})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestSQLPageRepository_RequiresExistingAuthor(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPageRepository(db)

	err := repo.CreatePage(context.Background(), &Page{Title: "orphan", Content: "c", AuthorID: 777})
	if err == nil {
		t.Fatal("expected foreign key failure for unknown author")
	}
	n, _ := repo.CountPages(context.Background())
	if n != 0 {
		t.Errorf("expected no pages, got %d", n)
	}
}

func TestSQLPageRepository_UpdateAndList(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewSQLPageRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "writer", "writer@example.com")
	other := seedUser(t, db, "other", "other@example.com")

	titles := []string{"first", "second", "third"}
	for i, title := range titles {
		authorID := author.ID
		if i == 1 {
			authorID = other.ID
		}
		if err := repo.CreatePage(ctx, &Page{Title: title, Content: "body", AuthorID: authorID}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.GetAllPages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(all))
	}
	for i, p := range all {
		if p.Title != titles[i] {
			t.Errorf("expected insertion order, position %d has %q", i, p.Title)
		}
	}

	all[0].Title = "first, revised"
	all[0].UpdatedAt = time.Now().UTC()
	if err := repo.UpdatePage(ctx, all[0]); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetPageByID(ctx, all[0].ID)
	if got.Title != "first, revised" {
		t.Errorf("expected updated title, got %q", got.Title)
	}

	window, err := repo.ListPages(ctx, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 2 || window[0].Title != "second" {
		t.Errorf("unexpected window: %+v", window)
	}

	mine, err := repo.GetPagesByAuthorID(ctx, author.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 pages by author, got %d", len(mine))
	}
}

func TestSQLPageRepository_CategoryAndTagLinks(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	repo := NewSQLPageRepository(db)
	categories := NewCategoryRepository(db)
	tags := NewTagRepository(db)
	author := seedUser(t, db, "a", "a@example.com")

	physics := &Category{Name: "Physics"}
	if err := categories.Save(ctx, physics); err != nil {
		t.Fatal(err)
	}
	arxiv := &Tag{Name: "arxiv"}
	if err := tags.Save(ctx, arxiv); err != nil {
		t.Fatal(err)
	}

	page := &Page{Title: "Entanglement", Content: "c", AuthorID: author.ID,
		Categories: []*Category{physics, physics}, Tags: []*Tag{arxiv}}
	if err := repo.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage failed: %v", err)
	}
	if err := repo.CreatePage(ctx, &Page{Title: "Unrelated", Content: "c", AuthorID: author.ID}); err != nil {
		t.Fatal(err)
	}

	inPhysics, err := repo.GetPagesByCategoryID(ctx, physics.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(inPhysics) != 1 || inPhysics[0].ID != page.ID {
		t.Errorf("expected only the linked page, got %+v", inPhysics)
	}

	pageCats, err := categories.ListForPage(ctx, page.ID)
	if err != nil || len(pageCats) != 1 {
		t.Errorf("expected one category link, got %v (%v)", pageCats, err)
	}
	pageTags, err := tags.ListForPage(ctx, page.ID)
	if err != nil || len(pageTags) != 1 || pageTags[0].Name != "arxiv" {
		t.Errorf("expected arxiv tag, got %v (%v)", pageTags, err)
	}
}
