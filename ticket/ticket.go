// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gstrauss42/planning-poker/models"
)

// Fetcher imports a ticket by its external key. The engine only
// consumes the output shape; how tickets are fetched and rendered is
// opaque to it.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (*models.Ticket, error)
}

// document is the upstream ticket shape: a title plus a rich-text body
// as a node tree.
type document struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  *node  `json:"body,omitempty"`
}

type node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []node `json:"content,omitempty"`
}

// HTTPFetcher fetches ticket documents from a JSON endpoint and renders
// their rich-text bodies into display markup.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves the document for key and converts it into the
// engine's ticket shape. The payload carries the rendered markup.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) (*models.Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticket fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticket fetch for %q returned %s", key, resp.Status)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode ticket document: %w", err)
	}
	if doc.Key == "" {
		doc.Key = key
	}

	payload, err := json.Marshal(map[string]string{"markup": renderBody(doc.Body)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket payload: %w", err)
	}

	return &models.Ticket{
		Key:     doc.Key,
		Title:   doc.Title,
		Payload: payload,
	}, nil
}

// renderBody flattens a rich-text node tree into plain display markup:
// paragraphs separated by blank lines, list items as "- " bullets.
func renderBody(n *node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, *n, "")
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, n node, prefix string) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "paragraph":
		b.WriteString(prefix)
		for _, child := range n.Content {
			renderNode(b, child, "")
		}
		b.WriteString("\n\n")
	case "bulletList", "orderedList":
		for _, child := range n.Content {
			renderNode(b, child, prefix)
		}
		b.WriteString("\n")
	case "listItem":
		b.WriteString(prefix + "- ")
		for _, child := range n.Content {
			// Children of a list item are paragraphs; render them
			// inline so the bullet stays on one line.
			for _, grandchild := range child.Content {
				renderNode(b, grandchild, "")
			}
		}
		b.WriteString("\n")
	default:
		for _, child := range n.Content {
			renderNode(b, child, prefix)
		}
	}
}
