// Package fetcher downloads external RSS feeds and turns their items into notices.
package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"notice_board/internal/model"
)

const maxDescription = 1000

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is a single RSS entry prepared for import.
type Item struct {
	GUID        string
	Title       string
	Description string
	Link        string
	Published   *time.Time
}

// Fetcher downloads and parses RSS feeds.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 30 * time.Second,
	}
}

// Fetch downloads and parses an RSS feed from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "CampusNoticeBoard/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ItemGUID returns the GUID for an RSS item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Items converts parsed RSS items, skipping entries without a title.
func Items(items []*gofeed.Item) []Item {
	var out []Item
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		desc := truncate(strings.TrimSpace(it.Description), maxDescription)
		out = append(out, Item{
			GUID:        ItemGUID(it),
			Title:       title,
			Description: desc,
			Link:        it.Link,
			Published:   it.PublishedParsed,
		})
	}
	return out
}

// PublisherID is the author reference given to notices imported from src.
func PublisherID(src model.Source) string {
	return "source:" + strconv.FormatInt(src.ID, 10)
}

// Notice builds a global notice for item attributed to src. Items without a
// publish date are stamped with now.
func Notice(src model.Source, item Item, now time.Time) model.Notice {
	created := now
	if item.Published != nil {
		created = *item.Published
	}
	n := model.Notice{
		Title:           item.Title,
		Description:     item.Description,
		Category:        src.Category,
		PublishedBy:     PublisherID(src),
		PublishedByName: src.Name,
		CreatedAt:       created.UTC().Truncate(time.Second),
	}
	if item.Link != "" {
		n.Attachments = []model.Attachment{{Name: "Link", URL: item.Link, Kind: model.AttachmentDocument}}
	}
	return n
}
