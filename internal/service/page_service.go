package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/search"
	"html/template"
	"math/rand"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultPerPage is the page size of the paginated listing.
const DefaultPerPage = 10

// PageRepository defines the interface for database operations on pages.
type PageRepository interface {
	CreatePage(ctx context.Context, page *data.Page) error
	GetPageByID(ctx context.Context, id int64) (*data.Page, error)
	UpdatePage(ctx context.Context, page *data.Page) error
	GetAllPages(ctx context.Context) ([]*data.Page, error)
	CountPages(ctx context.Context) (int, error)
	ListPages(ctx context.Context, limit, offset int) ([]*data.Page, error)
	GetPagesByCategoryID(ctx context.Context, categoryID int64) ([]*data.Page, error)
}

// CategoryRepository defines the category operations the page service needs.
type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*data.Category, error)
	Save(ctx context.Context, category *data.Category) error
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	GetAll(ctx context.Context) ([]*data.Category, error)
	SearchByName(ctx context.Context, query string) ([]*data.Category, error)
	ListForPage(ctx context.Context, pageID int64) ([]*data.Category, error)
}

// TagRepository defines the tag operations the page service needs.
type TagRepository interface {
	FindByName(ctx context.Context, name string) (*data.Tag, error)
	Save(ctx context.Context, tag *data.Tag) error
	ListForPage(ctx context.Context, pageID int64) ([]*data.Tag, error)
}

// CommentRepository defines the comment operations the page service needs.
type CommentRepository interface {
	Create(ctx context.Context, comment *data.Comment) error
	ListByPageID(ctx context.Context, pageID int64) ([]*data.Comment, error)
}

// Cache stores rendered page HTML.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// PageServicer defines the interface for interacting with pages.
type PageServicer interface {
	CreatePage(ctx context.Context, caller Caller, in CreatePageInput) (*data.Page, error)
	EditPage(ctx context.Context, caller Caller, id int64, in EditPageInput) (*data.Page, error)
	GetPage(ctx context.Context, id int64) (*data.Page, error)
	AddComment(ctx context.Context, caller Caller, pageID int64, text string) (*data.Comment, error)
	RandomPage(ctx context.Context) (*data.Page, error)
	ListPages(ctx context.Context) ([]*data.Page, error)
	ListPagesPage(ctx context.Context, page, perPage int) (*PageList, error)
	Search(ctx context.Context, query string) ([]*data.Page, error)
	QuickSearch(ctx context.Context, query string) ([]QuickResult, error)
	CategoryPages(ctx context.Context, id int64) (*data.Category, []*data.Page, error)
	Categories(ctx context.Context, query string) ([]*data.Category, error)
}

// CreatePageInput is the data needed to create a page.
type CreatePageInput struct {
	Title      string
	Content    string
	ImageURL   string
	Categories []string
	Tags       []string
}

// EditPageInput holds the editable fields of a page.
type EditPageInput struct {
	Title   string
	Content string
}

// PageList is one window of the paginated page listing.
type PageList struct {
	Items []*data.Page
	Total int
	Pages int
	Page  int
}

// QuickResult is a lightweight search hit for the JSON search endpoint.
type QuickResult struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// PageService provides business logic for managing pages and their comments.
type PageService struct {
	pages      PageRepository
	categories CategoryRepository
	tags       TagRepository
	comments   CommentRepository
	cache      Cache
	cacheTTL   time.Duration
	log        logger.Logger
	markdown   goldmark.Markdown
	sanitizer  *bluemonday.Policy
	intn       func(n int) int
	now        func() time.Time
}

// NewPageService creates a new PageService. cache may be nil.
func NewPageService(pages PageRepository, categories CategoryRepository, tags TagRepository, comments CommentRepository, cache Cache, log logger.Logger) *PageService {
	if log == nil {
		log = logger.Nop()
	}
	return &PageService{
		pages:      pages,
		categories: categories,
		tags:       tags,
		comments:   comments,
		cache:      cache,
		cacheTTL:   time.Hour,
		log:        log,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		sanitizer:  bluemonday.UGCPolicy(),
		intn:       rand.Intn,
		now:        time.Now,
	}
}

// SetCacheTTL changes how long rendered HTML is kept.
func (s *PageService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// CreatePage stores a new page authored by the caller. Categories and tags are looked up by
// name and created when missing.
func (s *PageService) CreatePage(ctx context.Context, caller Caller, in CreatePageInput) (*data.Page, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.createPage(ctx, caller.UserID, in)
}

// ImportPage stores a page on behalf of authorID. It is used by the article importer.
func (s *PageService) ImportPage(ctx context.Context, authorID int64, in CreatePageInput) (*data.Page, error) {
	return s.createPage(ctx, authorID, in)
}

func (s *PageService) createPage(ctx context.Context, authorID int64, in CreatePageInput) (*data.Page, error) {
	if err := validatePage(in.Title, in.Content); err != nil {
		return nil, err
	}

	page := &data.Page{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		ImageURL: strings.TrimSpace(in.ImageURL),
		AuthorID: authorID,
	}
	for _, name := range dedupeNames(in.Categories) {
		c, err := s.findOrCreateCategory(ctx, name)
		if err != nil {
			return nil, err
		}
		page.Categories = append(page.Categories, c)
	}
	for _, name := range dedupeNames(in.Tags) {
		t, err := s.findOrCreateTag(ctx, name)
		if err != nil {
			return nil, err
		}
		page.Tags = append(page.Tags, t)
	}

	if err := s.pages.CreatePage(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageService) findOrCreateCategory(ctx context.Context, name string) (*data.Category, error) {
	c, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	c = &data.Category{Name: name}
	if err := s.categories.Save(ctx, c); err != nil {
		// Lost a race with a concurrent writer; the row exists now.
		if errors.Is(err, data.ErrDuplicate) {
			return s.categories.FindByName(ctx, name)
		}
		return nil, err
	}
	return c, nil
}

func (s *PageService) findOrCreateTag(ctx context.Context, name string) (*data.Tag, error) {
	t, err := s.tags.FindByName(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	t = &data.Tag{Name: name}
	if err := s.tags.Save(ctx, t); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			return s.tags.FindByName(ctx, name)
		}
		return nil, err
	}
	return t, nil
}

// EditPage overwrites the title and content of a page. Only its author may edit it; for anyone
// else the page is left untouched and ErrPermissionDenied is returned.
func (s *PageService) EditPage(ctx context.Context, caller Caller, id int64, in EditPageInput) (*data.Page, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	page, err := s.pages.GetPageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.AuthorID != caller.UserID {
		return nil, ErrPermissionDenied
	}
	if err := validatePage(in.Title, in.Content); err != nil {
		return nil, err
	}

	staleKey := renderKey(page)
	page.Title = strings.TrimSpace(in.Title)
	page.Content = in.Content
	page.UpdatedAt = s.now().UTC()

	if err := s.pages.UpdatePage(ctx, page); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(staleKey); err != nil {
			s.log.Error(err, "Failed to invalidate rendered page")
		}
	}
	return page, nil
}

// GetPage loads a page with its author, categories, tags and comments, and renders its content.
func (s *PageService) GetPage(ctx context.Context, id int64) (*data.Page, error) {
	page, err := s.pages.GetPageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.Categories, err = s.categories.ListForPage(ctx, id); err != nil {
		return nil, err
	}
	if page.Tags, err = s.tags.ListForPage(ctx, id); err != nil {
		return nil, err
	}
	if page.Comments, err = s.comments.ListByPageID(ctx, id); err != nil {
		return nil, err
	}

	html, err := s.render(page)
	if err != nil {
		return nil, err
	}
	page.HTMLContent = html
	return page, nil
}

func renderKey(page *data.Page) string {
	return fmt.Sprintf("page:%d:%d", page.ID, page.UpdatedAt.UnixNano())
}

// render converts Markdown content to sanitized HTML, going through the cache when one is set.
func (s *PageService) render(page *data.Page) (template.HTML, error) {
	key := renderKey(page)
	if s.cache != nil {
		cached, err := s.cache.Get(key)
		if err != nil {
			s.log.Error(err, "Failed to read rendered page from cache")
		} else if cached != nil {
			return template.HTML(cached), nil
		}
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(page.Content), &buf); err != nil {
		return "", fmt.Errorf("failed to render page %d: %w", page.ID, err)
	}
	safe := s.sanitizer.SanitizeBytes(buf.Bytes())

	if s.cache != nil {
		if err := s.cache.Set(key, safe, s.cacheTTL); err != nil {
			s.log.Error(err, "Failed to cache rendered page")
		}
	}
	return template.HTML(safe), nil
}

// AddComment posts a comment under an existing page.
func (s *PageService) AddComment(ctx context.Context, caller Caller, pageID int64, text string) (*data.Comment, error) {
	if _, err := s.pages.GetPageByID(ctx, pageID); err != nil {
		return nil, err
	}
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("comment", "comment cannot be empty")
	}

	comment := &data.Comment{
		Content:    text,
		AuthorID:   caller.UserID,
		PageID:     pageID,
		AuthorName: caller.Username,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// RandomPage picks a page uniformly at random.
func (s *PageService) RandomPage(ctx context.Context) (*data.Page, error) {
	pages, err := s.pages.GetAllPages(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages[s.intn(len(pages))], nil
}

// ListPages returns every page in insertion order.
func (s *PageService) ListPages(ctx context.Context) ([]*data.Page, error) {
	return s.pages.GetAllPages(ctx)
}

// ListPagesPage returns one window of the page listing. Page numbers start at 1; a page past
// the end is ErrNotFound, except page 1 of an empty listing.
func (s *PageService) ListPagesPage(ctx context.Context, page, perPage int) (*PageList, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return nil, data.ErrNotFound
	}
	total, err := s.pages.CountPages(ctx)
	if err != nil {
		return nil, err
	}
	pages := (total + perPage - 1) / perPage
	if page > pages && page != 1 {
		return nil, data.ErrNotFound
	}
	items, err := s.pages.ListPages(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &PageList{Items: items, Total: total, Pages: pages, Page: page}, nil
}

// Search ranks pages by fuzzy title similarity to query.
func (s *PageService) Search(ctx context.Context, query string) ([]*data.Page, error) {
	all, err := s.pages.GetAllPages(ctx)
	if err != nil {
		return nil, err
	}
	matches := search.Rank(query, all, func(p *data.Page) string { return p.Title })
	result := make([]*data.Page, len(matches))
	for i, m := range matches {
		result[i] = m.Item
	}
	return result, nil
}

// QuickSearch returns pages whose title contains query, in insertion order, with a content preview.
func (s *PageService) QuickSearch(ctx context.Context, query string) ([]QuickResult, error) {
	all, err := s.pages.GetAllPages(ctx)
	if err != nil {
		return nil, err
	}
	results := []QuickResult{}
	for _, p := range all {
		if search.Contains(p.Title, query) {
			results = append(results, QuickResult{ID: p.ID, Title: p.Title, Preview: search.Preview(p.Content, 100)})
		}
	}
	return results, nil
}

// CategoryPages returns a category and the pages filed under it.
func (s *PageService) CategoryPages(ctx context.Context, id int64) (*data.Category, []*data.Page, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pages, err := s.pages.GetPagesByCategoryID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return category, pages, nil
}

// Categories lists all categories, or those whose name contains query when it is not blank.
func (s *PageService) Categories(ctx context.Context, query string) ([]*data.Category, error) {
	if q := strings.TrimSpace(query); q != "" {
		return s.categories.SearchByName(ctx, q)
	}
	return s.categories.GetAll(ctx)
}

func validatePage(title, content string) error {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return invalid("title", "title is required")
	case len([]rune(title)) > 100:
		return invalid("title", "title must be at most 100 characters")
	case strings.TrimSpace(content) == "":
		return invalid("content", "content is required")
	}
	return nil
}

// dedupeNames trims names, drops blanks and keeps the first occurrence of each.
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SplitNames parses a comma-separated list as typed into a form field.
func SplitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return dedupeNames(strings.Split(s, ","))
}
