package data

import (
	"html/template"
	"time"
)

// User is a registered account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Bio          string    `db:"bio"`
	ImageURL     string    `db:"image_url"`
	CreatedAt    time.Time `db:"created_at"`
	LastSeen     time.Time `db:"last_seen"`
}

// Page represents a single article in the database.
type Page struct {
	ID          int64         `db:"id"`
	Title       string        `db:"title"`
	Content     string        `db:"content"`
	HTMLContent template.HTML `db:"-"`
	ImageURL    string        `db:"image_url"`
	AuthorID    int64         `db:"author_id"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`

	// Populated on demand; the join tables are written by CreatePage.
	AuthorName string      `db:"-"`
	Categories []*Category `db:"-"`
	Tags       []*Tag      `db:"-"`
	Comments   []*Comment  `db:"-"`
}

// Comment is a reply posted under a page. Comments are never edited.
type Comment struct {
	ID         int64     `db:"id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	AuthorID   int64     `db:"author_id"`
	PageID     int64     `db:"page_id"`
	AuthorName string    `db:"author_name"`
}

// Category groups pages. Names are unique.
type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Tag labels pages. Names are unique.
type Tag struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
