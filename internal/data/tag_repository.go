package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TagRepository handles database operations for tags.
type TagRepository struct {
	DB *sqlx.DB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{DB: db}
}

// FindByName finds a tag by exact name.
func (r *TagRepository) FindByName(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	if err := r.DB.GetContext(ctx, &tag, "SELECT id, name FROM tags WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	return &tag, nil
}

// Save creates a new tag and sets its ID.
func (r *TagRepository) Save(ctx context.Context, tag *Tag) error {
	res, err := r.DB.NamedExecContext(ctx, "INSERT INTO tags (name) VALUES (:name)", tag)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", tag.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to save tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read tag id: %w", err)
	}
	tag.ID = id
	return nil
}

// ListForPage returns the tags linked to a page.
func (r *TagRepository) ListForPage(ctx context.Context, pageID int64) ([]*Tag, error) {
	tags := []*Tag{}
	query := `SELECT t.id, t.name FROM tags t
		JOIN page_tags pt ON pt.tag_id = t.id
		WHERE pt.page_id = ? ORDER BY t.name`
	if err := r.DB.SelectContext(ctx, &tags, query, pageID); err != nil {
		return nil, fmt.Errorf("failed to get page tags: %w", err)
	}
	return tags, nil
}
