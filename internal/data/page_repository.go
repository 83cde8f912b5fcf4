package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const pageColumns = `p.id, p.title, p.content, p.image_url, p.author_id, p.created_at, p.updated_at`

// SQLPageRepository is a concrete implementation of the PageRepository interface using sqlx.
type SQLPageRepository struct {
	db *sqlx.DB
}

// NewSQLPageRepository creates a new SQLPageRepository.
func NewSQLPageRepository(db *sqlx.DB) *SQLPageRepository {
	return &SQLPageRepository{db: db}
}

// CreatePage inserts a new page together with its category and tag links, and sets page.ID.
// Categories and tags must already exist.
func (r *SQLPageRepository) CreatePage(ctx context.Context, page *Page) error {
	now := time.Now().UTC()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = page.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin create page transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO pages (title, content, image_url, author_id, created_at, updated_at)
		VALUES (:title, :content, :image_url, :author_id, :created_at, :updated_at)`
	res, err := tx.NamedExecContext(ctx, query, page)
	if err != nil {
		return fmt.Errorf("failed to execute create page query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read page id: %w", err)
	}

	for _, c := range page.Categories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO page_categories (page_id, category_id) VALUES (?, ?)`, id, c.ID); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("failed to link category %d: %w", c.ID, err)
		}
	}
	for _, t := range page.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO page_tags (page_id, tag_id) VALUES (?, ?)`, id, t.ID); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("failed to link tag %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	page.ID = id
	return nil
}

// GetPageByID retrieves a single page from the database by its ID, including the author's username.
func (r *SQLPageRepository) GetPageByID(ctx context.Context, id int64) (*Page, error) {
	var row struct {
		Page
		AuthorName string `db:"author_name"`
	}
	query := `SELECT ` + pageColumns + `, u.username AS author_name
		FROM pages p JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get page by id: %w", err)
	}
	page := row.Page
	page.AuthorName = row.AuthorName
	return &page, nil
}

// UpdatePage overwrites the mutable fields of an existing page.
func (r *SQLPageRepository) UpdatePage(ctx context.Context, page *Page) error {
	query := `UPDATE pages SET title = :title, content = :content, image_url = :image_url, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, page)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no page found to update with id %d: %w", page.ID, ErrNotFound)
	}
	return nil
}

// GetAllPages retrieves all pages in insertion order.
func (r *SQLPageRepository) GetAllPages(ctx context.Context) ([]*Page, error) {
	pages := []*Page{}
	query := `SELECT ` + pageColumns + ` FROM pages p ORDER BY p.id`
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("failed to get all pages: %w", err)
	}
	return pages, nil
}

// CountPages returns the total number of pages.
func (r *SQLPageRepository) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pages`); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// ListPages returns one window of pages in insertion order.
func (r *SQLPageRepository) ListPages(ctx context.Context, limit, offset int) ([]*Page, error) {
	pages := []*Page{}
	query := `SELECT ` + pageColumns + ` FROM pages p ORDER BY p.id LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &pages, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// GetPagesByAuthorID retrieves all pages written by a user.
func (r *SQLPageRepository) GetPagesByAuthorID(ctx context.Context, authorID int64) ([]*Page, error) {
	pages := []*Page{}
	query := `SELECT ` + pageColumns + ` FROM pages p WHERE p.author_id = ? ORDER BY p.id`
	if err := r.db.SelectContext(ctx, &pages, query, authorID); err != nil {
		return nil, fmt.Errorf("failed to get pages by author id: %w", err)
	}
	return pages, nil
}

// GetPagesByCategoryID retrieves all pages associated with a given category ID.
func (r *SQLPageRepository) GetPagesByCategoryID(ctx context.Context, categoryID int64) ([]*Page, error) {
	pages := []*Page{}
	query := `SELECT ` + pageColumns + ` FROM pages p
		JOIN page_categories pc ON pc.page_id = p.id
		WHERE pc.category_id = ? ORDER BY p.id`
	if err := r.db.SelectContext(ctx, &pages, query, categoryID); err != nil {
		return nil, fmt.Errorf("failed to get pages by category id: %w", err)
	}
	return pages, nil
}
