package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment and sets its ID.
func (r *CommentRepository) Create(ctx context.Context, comment *Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO comments (content, created_at, author_id, page_id) VALUES (:content, :created_at, :author_id, :page_id)`
	res, err := r.db.NamedExecContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// ListByPageID returns the comments of a page, oldest first.
func (r *CommentRepository) ListByPageID(ctx context.Context, pageID int64) ([]*Comment, error) {
	comments := []*Comment{}
	query := `SELECT c.id, c.content, c.created_at, c.author_id, c.page_id, u.username AS author_name
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.page_id = ? ORDER BY c.id`
	if err := r.db.SelectContext(ctx, &comments, query, pageID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
