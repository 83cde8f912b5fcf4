package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	DB *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

// FindByName finds a category by exact name.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*Category, error) {
	var category Category
	if err := r.DB.GetContext(ctx, &category, "SELECT id, name FROM categories WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

// SearchByName searches for categories whose name contains query.
func (r *CategoryRepository) SearchByName(ctx context.Context, query string) ([]*Category, error) {
	categories := []*Category{}
	err := r.DB.SelectContext(ctx, &categories, "SELECT id, name FROM categories WHERE name LIKE ? ORDER BY name", "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search categories: %w", err)
	}
	return categories, nil
}

// GetAll retrieves all categories ordered by name.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*Category, error) {
	categories := []*Category{}
	if err := r.DB.SelectContext(ctx, &categories, "SELECT id, name FROM categories ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// Save creates a new category and sets its ID. A taken name yields ErrDuplicate.
func (r *CategoryRepository) Save(ctx context.Context, category *Category) error {
	res, err := r.DB.NamedExecContext(ctx, "INSERT INTO categories (name) VALUES (:name)", category)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", category.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to save category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read category id: %w", err)
	}
	category.ID = id
	return nil
}

// GetByID finds a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	if err := r.DB.GetContext(ctx, &category, "SELECT id, name FROM categories WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// ListForPage returns the categories linked to a page.
func (r *CategoryRepository) ListForPage(ctx context.Context, pageID int64) ([]*Category, error) {
	categories := []*Category{}
	query := `SELECT c.id, c.name FROM categories c
		JOIN page_categories pc ON pc.category_id = c.id
		WHERE pc.page_id = ? ORDER BY c.name`
	if err := r.DB.SelectContext(ctx, &categories, query, pageID); err != nil {
		return nil, fmt.Errorf("failed to get page categories: %w", err)
	}
	return categories, nil
}
