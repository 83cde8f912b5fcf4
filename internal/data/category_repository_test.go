//go:build integration

package data

import (
	"context"
	"errors"
	"testing"
)

func TestCategoryRepository_Save(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)

	category := &Category{Name: "Science"}
	if err := repo.Save(context.Background(), category); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if category.ID == 0 {
		t.Error("expected non-zero id")
	}

	err := repo.Save(context.Background(), &Category{Name: "Science"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for repeated name, got %v", err)
	}
}

func TestCategoryRepository_FindByName(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	if err := repo.Save(ctx, &Category{Name: "Sports"}); err != nil {
		t.Fatal(err)
	}

	found, err := repo.FindByName(ctx, "Sports")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if found == nil || found.Name != "Sports" {
		t.Fatalf("expected to find 'Sports', got %v", found)
	}

	if _, err := repo.FindByName(ctx, "Basketball"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryRepository_GetByID(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	category := &Category{Name: "Movies"}
	if err := repo.Save(ctx, category); err != nil {
		t.Fatal(err)
	}

	found, err := repo.GetByID(ctx, category.ID)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if found == nil || found.Name != "Movies" {
		t.Fatalf("expected 'Movies', got %v", found)
	}

	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryRepository_GetAllAndSearch(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	for _, name := range []string{"History", "Music", "Art History"} {
		if err := repo.Save(ctx, &Category{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	categories, err := repo.GetAll(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(categories) != 3 || categories[0].Name != "Art History" {
		t.Errorf("expected 3 categories sorted by name, got %v", categories)
	}

	results, err := repo.SearchByName(ctx, "History")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
