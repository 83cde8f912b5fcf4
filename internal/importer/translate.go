package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Translator translates text into the target language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// GoogleTranslator uses the public translate_a/single endpoint with automatic source detection.
type GoogleTranslator struct {
	baseURL string
	target  string
	client  *httpClient
}

// Translate returns text in the target language.
func (g *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", g.target)
	q.Set("dt", "t")
	q.Set("q", text)

	body, err := g.client.get(ctx, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	return parseTranslation(body)
}

// parseTranslation extracts the translated segments from the nested array response,
// shaped like [[["translated","source",...],...],...].
func parseTranslation(body []byte) (string, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return "", fmt.Errorf("failed to parse translation: %w", err)
	}
	if len(outer) == 0 {
		return "", errors.New("empty translation response")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(outer[0], &segments); err != nil {
		return "", fmt.Errorf("failed to parse translation segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	if b.Len() == 0 {
		return "", errors.New("translation response has no text")
	}
	return b.String(), nil
}
