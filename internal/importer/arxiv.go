package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Entry is one article from the arXiv feed.
type Entry struct {
	Title   string
	Summary string
}

// Source yields articles to import.
type Source interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]Entry, error)
}

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	baseURL string
	client  *httpClient
}

type atomFeed struct {
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
	} `xml:"http://www.w3.org/2005/Atom entry"`
}

// Fetch runs an all-fields search and returns the entries in feed order.
func (a *ArxivClient) Fetch(ctx context.Context, query string, maxResults int) ([]Entry, error) {
	q := url.Values{}
	q.Set("search_query", "all:"+query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))

	body, err := a.client.get(ctx, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv query failed: %w", err)
	}
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := collapseSpace(e.Title)
		summary := strings.TrimSpace(e.Summary)
		if title == "" || summary == "" {
			continue
		}
		entries = append(entries, Entry{Title: title, Summary: summary})
	}
	return entries, nil
}

// collapseSpace joins the lines of a wrapped Atom title.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
