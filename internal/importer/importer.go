package importer

import (
	"context"
	"errors"
	"fmt"
	"go-pages-app/internal/config"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/service"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// maxTitle matches the page title limit enforced by the page service.
const maxTitle = 100

// PageWriter stores imported pages.
type PageWriter interface {
	ImportPage(ctx context.Context, authorID int64, in service.CreatePageInput) (*data.Page, error)
}

// PageCounter reports how many pages exist.
type PageCounter interface {
	CountPages(ctx context.Context) (int, error)
}

// AuthorResolver finds the account imported pages are attributed to.
type AuthorResolver interface {
	GetByUsername(ctx context.Context, username string) (*data.User, error)
	First(ctx context.Context) (*data.User, error)
}

// Importer pulls articles from a Source, translates them and stores them as pages.
type Importer struct {
	source      Source
	translator  Translator
	images      ImageFinder
	pages       PageWriter
	authors     AuthorResolver
	query       string
	maxResults  int
	author      string
	concurrency int
	log         logger.Logger
}

// New builds an Importer talking to arXiv, Google Translate and Unsplash. All outbound
// requests share one rate limiter. Image lookup is disabled without an Unsplash key.
func New(cfg config.ImportConfig, pages PageWriter, authors AuthorResolver, log logger.Logger) *Importer {
	client := newHTTPClient(cfg.RatePerSecond)
	imp := &Importer{
		source:     &ArxivClient{baseURL: cfg.ArxivURL, client: client},
		pages:      pages,
		authors:    authors,
		query:      cfg.Query,
		maxResults: cfg.MaxResults,
		author:     cfg.Author,
		log:        log,
	}
	if cfg.TargetLanguage != "" {
		imp.translator = &GoogleTranslator{baseURL: cfg.TranslateURL, target: cfg.TargetLanguage, client: client}
	}
	if cfg.UnsplashAccessKey != "" {
		imp.images = &UnsplashFinder{baseURL: cfg.UnsplashURL, accessKey: cfg.UnsplashAccessKey, client: client}
	}
	imp.concurrency = cfg.Concurrency
	if imp.concurrency < 1 {
		imp.concurrency = 1
	}
	if imp.maxResults < 1 {
		imp.maxResults = 100
	}
	return imp
}

// Run performs one import and returns the number of pages created.
func (i *Importer) Run(ctx context.Context) (int, error) {
	author, err := i.resolveAuthor(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := i.source.Fetch(ctx, i.query, i.maxResults)
	if err != nil {
		return 0, err
	}
	i.log.With(map[string]interface{}{"query": i.query, "entries": len(entries)}).Info("Fetched articles")

	inputs := make([]service.CreatePageInput, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for n, e := range entries {
		n, e := n, e
		g.Go(func() error {
			inputs[n] = i.prepare(gctx, e)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// Pages are written sequentially so they keep the feed order.
	created := 0
	for _, in := range inputs {
		if _, err := i.pages.ImportPage(ctx, author.ID, in); err != nil {
			if service.IsValidation(err) {
				i.log.With(map[string]interface{}{"title": in.Title}).Warn("Skipping invalid article")
				continue
			}
			return created, fmt.Errorf("failed to store imported page: %w", err)
		}
		created++
	}
	i.log.With(map[string]interface{}{"created": created}).Info("Import finished")
	return created, nil
}

// RunIfEmpty imports only when the store holds no pages yet.
func (i *Importer) RunIfEmpty(ctx context.Context, counter PageCounter) (int, error) {
	n, err := counter.CountPages(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return i.Run(ctx)
}

func (i *Importer) resolveAuthor(ctx context.Context) (*data.User, error) {
	if i.author != "" {
		u, err := i.authors.GetByUsername(ctx, i.author)
		if err != nil {
			return nil, fmt.Errorf("import author %q: %w", i.author, err)
		}
		return u, nil
	}
	u, err := i.authors.First(ctx)
	if errors.Is(err, data.ErrNotFound) {
		return nil, errors.New("no user to attribute imported pages to; create one first")
	}
	return u, err
}

// prepare translates an entry and looks up its image. Both steps are best effort.
func (i *Importer) prepare(ctx context.Context, e Entry) service.CreatePageInput {
	in := service.CreatePageInput{Title: e.Title, Content: e.Summary}
	if i.translator != nil {
		if t, err := i.translator.Translate(ctx, e.Title); err == nil {
			in.Title = t
		} else {
			i.log.Error(err, "Failed to translate title")
		}
		if s, err := i.translator.Translate(ctx, e.Summary); err == nil {
			in.Content = s
		} else {
			i.log.Error(err, "Failed to translate summary")
		}
	}
	in.Title = truncate(in.Title, maxTitle)

	if i.images != nil {
		// Unsplash is queried with the original title, as it is English.
		if img, err := i.images.FindImage(ctx, e.Title); err == nil {
			in.ImageURL = img
		} else {
			i.log.Error(err, "Failed to find image")
		}
	}
	return in
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
