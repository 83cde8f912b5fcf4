//go:build unit

package service

import (
	"context"
	"errors"
	"go-pages-app/internal/cache"
	"go-pages-app/internal/config"
	"go-pages-app/internal/data"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache creates a new in-memory cache for testing.
func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(config.CacheConfig{FilePath: "file::memory:"})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// mockPageRepository is an in-memory PageRepository.
type mockPageRepository struct {
	pages            []*data.Page
	byCategory       map[int64][]*data.Page
	errToReturn      error
	createPageCalled bool
	updatePageCalled bool
}

var _ PageRepository = (*mockPageRepository)(nil)

func (m *mockPageRepository) CreatePage(ctx context.Context, page *data.Page) error {
	m.createPageCalled = true
	if m.errToReturn != nil {
		return m.errToReturn
	}
	page.ID = int64(len(m.pages) + 1)
	page.CreatedAt = time.Now()
	page.UpdatedAt = page.CreatedAt
	cp := *page
	m.pages = append(m.pages, &cp)
	return nil
}

func (m *mockPageRepository) GetPageByID(ctx context.Context, id int64) (*data.Page, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	for _, p := range m.pages {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, data.ErrNotFound
}

func (m *mockPageRepository) UpdatePage(ctx context.Context, page *data.Page) error {
	m.updatePageCalled = true
	for i, p := range m.pages {
		if p.ID == page.ID {
			cp := *page
			m.pages[i] = &cp
			return nil
		}
	}
	return data.ErrNotFound
}

func (m *mockPageRepository) GetAllPages(ctx context.Context) ([]*data.Page, error) {
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return m.pages, nil
}

func (m *mockPageRepository) CountPages(ctx context.Context) (int, error) {
	return len(m.pages), nil
}

func (m *mockPageRepository) ListPages(ctx context.Context, limit, offset int) ([]*data.Page, error) {
	if offset >= len(m.pages) {
		return []*data.Page{}, nil
	}
	end := min(offset+limit, len(m.pages))
	return m.pages[offset:end], nil
}

func (m *mockPageRepository) GetPagesByCategoryID(ctx context.Context, categoryID int64) ([]*data.Page, error) {
	return m.byCategory[categoryID], nil
}

// mockNames is an in-memory store shared by the category and tag mocks.
type mockNames struct {
	names     []string
	saveCalls int
	saveErr   error
	// racing makes save insert the row and still report a duplicate, as when a
	// concurrent request wins between lookup and insert.
	racing bool
}

func (m *mockNames) find(name string) (int64, bool) {
	for i, n := range m.names {
		if n == name {
			return int64(i + 1), true
		}
	}
	return 0, false
}

func (m *mockNames) save(name string) (int64, error) {
	m.saveCalls++
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	if m.racing {
		m.names = append(m.names, name)
		return 0, data.ErrDuplicate
	}
	if _, ok := m.find(name); ok {
		return 0, data.ErrDuplicate
	}
	m.names = append(m.names, name)
	return int64(len(m.names)), nil
}

type mockCategoryRepository struct{ mockNames }

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*data.Category, error) {
	if id, ok := m.find(name); ok {
		return &data.Category{ID: id, Name: name}, nil
	}
	return nil, data.ErrNotFound
}

func (m *mockCategoryRepository) Save(ctx context.Context, c *data.Category) error {
	id, err := m.save(c.Name)
	c.ID = id
	return err
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*data.Category, error) {
	if id < 1 || int(id) > len(m.names) {
		return nil, data.ErrNotFound
	}
	return &data.Category{ID: id, Name: m.names[id-1]}, nil
}

func (m *mockCategoryRepository) GetAll(ctx context.Context) ([]*data.Category, error) {
	out := []*data.Category{}
	for i, n := range m.names {
		out = append(out, &data.Category{ID: int64(i + 1), Name: n})
	}
	return out, nil
}

func (m *mockCategoryRepository) SearchByName(ctx context.Context, query string) ([]*data.Category, error) {
	out := []*data.Category{}
	for i, n := range m.names {
		if strings.Contains(n, query) {
			out = append(out, &data.Category{ID: int64(i + 1), Name: n})
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) ListForPage(ctx context.Context, pageID int64) ([]*data.Category, error) {
	return []*data.Category{}, nil
}

type mockTagRepository struct{ mockNames }

func (m *mockTagRepository) FindByName(ctx context.Context, name string) (*data.Tag, error) {
	if id, ok := m.find(name); ok {
		return &data.Tag{ID: id, Name: name}, nil
	}
	return nil, data.ErrNotFound
}

func (m *mockTagRepository) Save(ctx context.Context, t *data.Tag) error {
	id, err := m.save(t.Name)
	t.ID = id
	return err
}

func (m *mockTagRepository) ListForPage(ctx context.Context, pageID int64) ([]*data.Tag, error) {
	return []*data.Tag{}, nil
}

type mockCommentRepository struct {
	comments []*data.Comment
}

func (m *mockCommentRepository) Create(ctx context.Context, c *data.Comment) error {
	c.ID = int64(len(m.comments) + 1)
	m.comments = append(m.comments, c)
	return nil
}

func (m *mockCommentRepository) ListByPageID(ctx context.Context, pageID int64) ([]*data.Comment, error) {
	out := []*data.Comment{}
	for _, c := range m.comments {
		if c.PageID == pageID {
			out = append(out, c)
		}
	}
	return out, nil
}

type pageServiceFixture struct {
	svc        *PageService
	pages      *mockPageRepository
	categories *mockCategoryRepository
	tags       *mockTagRepository
	comments   *mockCommentRepository
}

func newPageServiceFixture(t *testing.T, c Cache) *pageServiceFixture {
	t.Helper()
	f := &pageServiceFixture{
		pages:      &mockPageRepository{byCategory: map[int64][]*data.Page{}},
		categories: &mockCategoryRepository{},
		tags:       &mockTagRepository{},
		comments:   &mockCommentRepository{},
	}
	f.svc = NewPageService(f.pages, f.categories, f.tags, f.comments, c, nil)
	return f
}

var alice = Caller{UserID: 1, Username: "alice"}

func TestPageService_CreatePage(t *testing.T) {
	t.Run("anonymous caller", func(t *testing.T) {
		f := newPageServiceFixture(t, nil)
		_, err := f.svc.CreatePage(context.Background(), Caller{}, CreatePageInput{Title: "T", Content: "C"})
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.False(t, f.pages.createPageCalled)
	})

	t.Run("validation", func(t *testing.T) {
		f := newPageServiceFixture(t, nil)
		for _, in := range []CreatePageInput{
			{Title: "  ", Content: "C"},
			{Title: "T", Content: " \n "},
			{Title: strings.Repeat("x", 101), Content: "C"},
		} {
			_, err := f.svc.CreatePage(context.Background(), alice, in)
			assert.True(t, IsValidation(err), "expected validation error for %+v, got %v", in, err)
		}
		assert.False(t, f.pages.createPageCalled)
	})

	t.Run("find or create categories and tags", func(t *testing.T) {
		f := newPageServiceFixture(t, nil)
		f.categories.names = []string{"Physics"}

		page, err := f.svc.CreatePage(context.Background(), alice, CreatePageInput{
			Title:      "Quantum Computing",
			Content:    "# Qubits",
			Categories: []string{"Physics", "Computing", "Physics", " "},
			Tags:       []string{"qc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.ID)
		assert.Equal(t, alice.UserID, page.AuthorID)
		assert.Equal(t, "# Qubits", page.Content)
		require.Len(t, page.Categories, 2)
		assert.Equal(t, int64(1), page.Categories[0].ID)
		assert.Equal(t, "Computing", page.Categories[1].Name)
		assert.Equal(t, 1, f.categories.saveCalls)
		require.Len(t, page.Tags, 1)
	})

	t.Run("lost race on category is resolved by lookup", func(t *testing.T) {
		f := newPageServiceFixture(t, nil)
		f.categories.racing = true
		page, err := f.svc.CreatePage(context.Background(), alice, CreatePageInput{Title: "T", Content: "C", Categories: []string{"New"}})
		require.NoError(t, err)
		require.Len(t, page.Categories, 1)
		assert.Equal(t, int64(1), page.Categories[0].ID)
	})

	t.Run("store failure on category", func(t *testing.T) {
		f := newPageServiceFixture(t, nil)
		f.categories.saveErr = errors.New("disk full")
		_, err := f.svc.CreatePage(context.Background(), alice, CreatePageInput{Title: "T", Content: "C", Categories: []string{"New"}})
		assert.EqualError(t, err, "disk full")
		assert.False(t, f.pages.createPageCalled)
	})
}

func TestPageService_EditPage(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)
	page, err := f.svc.CreatePage(ctx, alice, CreatePageInput{Title: "Original", Content: "Body"})
	require.NoError(t, err)

	t.Run("non-author is rejected without mutation", func(t *testing.T) {
		bob := Caller{UserID: 2, Username: "bob"}
		_, err := f.svc.EditPage(ctx, bob, page.ID, EditPageInput{Title: "Hijacked", Content: "x"})
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.False(t, f.pages.updatePageCalled)
		stored, _ := f.pages.GetPageByID(ctx, page.ID)
		assert.Equal(t, "Original", stored.Title)
	})

	t.Run("missing page", func(t *testing.T) {
		_, err := f.svc.EditPage(ctx, alice, 99, EditPageInput{Title: "T", Content: "C"})
		assert.ErrorIs(t, err, data.ErrNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.svc.EditPage(ctx, Caller{}, page.ID, EditPageInput{Title: "T", Content: "C"})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("author edits", func(t *testing.T) {
		updated, err := f.svc.EditPage(ctx, alice, page.ID, EditPageInput{Title: "Renamed", Content: "New body"})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		stored, _ := f.pages.GetPageByID(ctx, page.ID)
		assert.Equal(t, "New body", stored.Content)
	})
}

func TestPageService_GetPage_RendersAndCaches(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	f := newPageServiceFixture(t, c)
	page, err := f.svc.CreatePage(ctx, alice, CreatePageInput{
		Title:   "Markdown",
		Content: "**bold** <script>alert(1)</script>",
	})
	require.NoError(t, err)

	got, err := f.svc.GetPage(ctx, page.ID)
	require.NoError(t, err)
	html := string(got.HTMLContent)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")

	cached, err := c.Get(renderKey(got))
	require.NoError(t, err)
	assert.Equal(t, html, string(cached))

	// A cached rendering is served as-is.
	require.NoError(t, c.Set(renderKey(got), []byte("<p>cached</p>"), time.Minute))
	again, err := f.svc.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>cached</p>", string(again.HTMLContent))

	// Editing drops the stale rendering.
	f.svc.now = func() time.Time { return got.UpdatedAt.Add(time.Second) }
	_, err = f.svc.EditPage(ctx, alice, page.ID, EditPageInput{Title: "Markdown", Content: "_new_"})
	require.NoError(t, err)
	stale, _ := c.Get(renderKey(got))
	assert.Nil(t, stale)
	edited, err := f.svc.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Contains(t, string(edited.HTMLContent), "<em>new</em>")
}

func TestPageService_GetPage_NotFound(t *testing.T) {
	f := newPageServiceFixture(t, nil)
	_, err := f.svc.GetPage(context.Background(), 42)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestPageService_AddComment(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)
	page, err := f.svc.CreatePage(ctx, alice, CreatePageInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, alice, 999, "hi")
	assert.ErrorIs(t, err, data.ErrNotFound)

	_, err = f.svc.AddComment(ctx, Caller{}, page.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.AddComment(ctx, alice, page.ID, "   ")
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.comments.comments)

	c, err := f.svc.AddComment(ctx, alice, page.ID, "Nice article")
	require.NoError(t, err)
	assert.Equal(t, page.ID, c.PageID)
	assert.Equal(t, "alice", c.AuthorName)
	assert.Len(t, f.comments.comments, 1)
}

func TestPageService_RandomPage(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)

	_, err := f.svc.RandomPage(ctx)
	assert.ErrorIs(t, err, ErrNoPages)

	for _, title := range []string{"A", "B", "C"} {
		_, err := f.svc.CreatePage(ctx, alice, CreatePageInput{Title: title, Content: "x"})
		require.NoError(t, err)
	}
	f.svc.intn = func(n int) int { return n - 1 }
	p, err := f.svc.RandomPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C", p.Title)

	f.pages.errToReturn = errors.New("db down")
	_, err = f.svc.RandomPage(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPages)
}

func TestPageService_ListPagesPage(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)

	empty, err := f.svc.ListPagesPage(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.Pages)
	assert.Empty(t, empty.Items)

	for i := 0; i < 23; i++ {
		_, err := f.svc.CreatePage(ctx, alice, CreatePageInput{Title: "P", Content: "x"})
		require.NoError(t, err)
	}

	third, err := f.svc.ListPagesPage(ctx, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 23, third.Total)
	assert.Equal(t, 3, third.Pages)
	assert.Len(t, third.Items, 3)
	assert.Equal(t, int64(21), third.Items[0].ID)

	_, err = f.svc.ListPagesPage(ctx, 4, 10)
	assert.ErrorIs(t, err, data.ErrNotFound)
	_, err = f.svc.ListPagesPage(ctx, 0, 10)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestPageService_Search(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)
	for _, title := range []string{"Quantum Computing", "Classical Mechanics", "Fluid Dynamics"} {
		_, err := f.svc.CreatePage(ctx, alice, CreatePageInput{Title: title, Content: "About " + title})
		require.NoError(t, err)
	}

	pages, err := f.svc.Search(ctx, "quantum")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Quantum Computing", pages[0].Title)

	quick, err := f.svc.QuickSearch(ctx, "MECH")
	require.NoError(t, err)
	require.Len(t, quick, 1)
	assert.Equal(t, QuickResult{ID: 2, Title: "Classical Mechanics", Preview: "About Classical Mechanics"}, quick[0])

	none, err := f.svc.QuickSearch(ctx, "biology")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPageService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newPageServiceFixture(t, nil)
	f.categories.names = []string{"Physics", "Biology"}
	f.pages.byCategory[1] = []*data.Page{{ID: 7, Title: "Optics"}}

	all, err := f.svc.Categories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := f.svc.Categories(ctx, "Bio")
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Biology", some[0].Name)

	cat, pages, err := f.svc.CategoryPages(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Physics", cat.Name)
	assert.Len(t, pages, 1)

	_, _, err = f.svc.CategoryPages(ctx, 9)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestSplitNames(t *testing.T) {
	assert.Nil(t, SplitNames("  "))
	assert.Equal(t, []string{"a", "b"}, SplitNames("a, b,,a"))
}
