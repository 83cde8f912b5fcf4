package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ImageFinder looks up an illustration for a title.
type ImageFinder interface {
	FindImage(ctx context.Context, query string) (string, error)
}

// UnsplashFinder asks Unsplash for a random photo matching the query.
type UnsplashFinder struct {
	baseURL   string
	accessKey string
	client    *httpClient
}

// FindImage returns the small-size URL of a matching photo, or "" when there is none.
func (u *UnsplashFinder) FindImage(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("query", query)
	header := http.Header{}
	header.Set("Authorization", "Client-ID "+u.accessKey)
	header.Set("Accept-Version", "v1")

	body, err := u.client.get(ctx, u.baseURL+"?"+q.Encode(), header)
	if err != nil {
		return "", fmt.Errorf("unsplash request failed: %w", err)
	}
	var photo struct {
		URLs struct {
			Small string `json:"small"`
		} `json:"urls"`
	}
	if err := json.Unmarshal(body, &photo); err != nil {
		return "", fmt.Errorf("failed to parse unsplash response: %w", err)
	}
	return photo.URLs.Small, nil
}
