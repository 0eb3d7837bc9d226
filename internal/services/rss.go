// RSS/Atom adapter built on gofeed
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/mmcdole/gofeed"
)

const rssUserAgent = "aggx/1.0 (+https://github.com/desertthunder/aggx)"

// RSSService implements [Adapter] for feeds. A feed is always a single page.
type RSSService struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewRSSService creates a feed adapter. A nil client falls back to [http.DefaultClient].
func NewRSSService(client *http.Client) *RSSService {
	if client == nil {
		client = http.DefaultClient
	}

	return &RSSService{
		httpClient: client,
		now:        time.Now,
	}
}

// Name returns the service name.
func (s *RSSService) Name() string {
	return "RSS"
}

// FetchPage downloads and parses the feed at src.ExternalID. The token is ignored.
//
// Entry ids are normalized from the GUID, falling back to the link. Entries without a
// parseable published or updated date are stamped with the fetch instant.
func (s *RSSService) FetchPage(ctx context.Context, src models.Source, _ string) (*Page[models.Article], error) {
	if src.ExternalID == "" {
		return nil, fmt.Errorf("%w: feed %s has no url", shared.ErrMissingConfig, src.ContainerID)
	}

	feed, err := s.fetch(ctx, src.ExternalID)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now()
	articles := make([]models.Article, 0, len(feed.Items))
	for _, entry := range feed.Items {
		articles = append(articles, s.toArticle(src.ContainerID, entry, fetchedAt))
	}

	return &Page[models.Article]{
		Items: articles,
		Container: &models.ContainerMeta{
			Title:       strings.TrimSpace(feed.Title),
			Description: strings.TrimSpace(feed.Description),
			ExternalID:  src.ExternalID,
		},
	}, nil
}

// Probe fetches only the feed's metadata, used when a feed is added without a title.
func (s *RSSService) Probe(ctx context.Context, feedURL string) (*models.ContainerMeta, error) {
	feed, err := s.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	meta := &models.ContainerMeta{
		Title:       strings.TrimSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
		ExternalID:  feedURL,
	}
	if feed.Image != nil {
		meta.ImageURL = feed.Image.URL
	}
	return meta, nil
}

func (s *RSSService) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: feed url %q: %w", shared.ErrInvalidInput, feedURL, err)
	}
	req.Header.Set("User-Agent", rssUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	// gofeed parsers keep per-parse state, so each fetch gets its own.
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed %s: %w", shared.ErrMalformedPayload, feedURL, err)
	}
	return feed, nil
}

func (s *RSSService) toArticle(feedID string, entry *gofeed.Item, fetchedAt time.Time) models.Article {
	key := entry.GUID
	if key == "" {
		key = entry.Link
	}

	published := fetchedAt
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "Untitled"
	}

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	}

	return models.Article{
		ID:          shared.NormalizeID(key),
		FeedID:      feedID,
		Title:       title,
		Link:        entry.Link,
		Author:      author,
		PublishedAt: models.NewTimestamp(published),
		Summary:     entry.Description,
		Content:     entry.Content,
		ImageURL:    entryImage(entry),
	}
}

// entryImage looks for an image in enclosures, media:content and the item image,
// then falls back to the first <img> in the entry's HTML.
func entryImage(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	if media, ok := entry.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if content.Attrs["medium"] == "image" && content.Attrs["url"] != "" {
				return content.Attrs["url"]
			}
		}
		for _, thumb := range media["thumbnail"] {
			if thumb.Attrs["url"] != "" {
				return thumb.Attrs["url"]
			}
		}
	}

	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}

	for _, html := range []string{entry.Content, entry.Description} {
		if src := firstImageSrc(html); src != "" {
			return src
		}
	}
	return ""
}

func firstImageSrc(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
