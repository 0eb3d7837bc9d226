// Social platform adapters
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultPostLimit       = 20
	defaultMastodonBaseURL = "https://mastodon.social"
)

// SocialProvider fetches the latest posts of one account on a single platform.
type SocialProvider interface {
	Platform() string
	FetchPosts(ctx context.Context, src models.Source, limit int) (*Page[models.Post], error)
}

// SocialService implements [Adapter] by dispatching on the account's platform.
type SocialService struct {
	providers map[string]SocialProvider
	limit     int
}

// NewSocialService creates a social adapter with the given providers.
func NewSocialService(limit int, providers ...SocialProvider) *SocialService {
	if limit <= 0 {
		limit = defaultPostLimit
	}

	s := &SocialService{providers: make(map[string]SocialProvider), limit: limit}
	for _, p := range providers {
		s.Register(p)
	}
	return s
}

// Register adds or replaces the provider for its platform.
func (s *SocialService) Register(p SocialProvider) {
	s.providers[strings.ToLower(p.Platform())] = p
}

// Name returns the service name.
func (s *SocialService) Name() string {
	return "Social"
}

// Supports reports whether a provider is registered for platform.
func (s *SocialService) Supports(platform string) bool {
	_, ok := s.providers[strings.ToLower(platform)]
	return ok
}

// FetchPage returns the account's latest posts in a single page.
//
// Platforms without a provider yield [shared.ErrNoProvider]; callers treat that as
// "nothing to fetch" rather than a failure.
func (s *SocialService) FetchPage(ctx context.Context, src models.Source, _ string) (*Page[models.Post], error) {
	p, ok := s.providers[strings.ToLower(src.Platform)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoProvider, src.Platform)
	}
	if src.ExternalID == "" {
		return nil, fmt.Errorf("%w: account %s has no username", shared.ErrMissingConfig, src.ContainerID)
	}

	page, err := p.FetchPosts(ctx, src, s.limit)
	if err != nil {
		return nil, err
	}
	page.NextToken = ""
	return page, nil
}

// MastodonAccount is the subset of a Mastodon account used here.
type MastodonAccount struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	Note        string `json:"note"`
	URL         string `json:"url"`
	Avatar      string `json:"avatar"`
}

// MastodonStatus is the subset of a Mastodon status used here.
type MastodonStatus struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	URL              string    `json:"url"`
	Content          string    `json:"content"`
	FavouritesCount  int       `json:"favourites_count"`
	ReblogsCount     int       `json:"reblogs_count"`
	RepliesCount     int       `json:"replies_count"`
	MediaAttachments []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"media_attachments"`
}

// MastodonProvider reads public statuses through the Mastodon REST API.
type MastodonProvider struct {
	api *APIClient
}

// NewMastodonProvider creates a provider for the instance at baseURL.
//
// When accessToken is set, requests carry it as a bearer token.
func NewMastodonProvider(baseURL, accessToken string, client *http.Client) *MastodonProvider {
	if baseURL == "" {
		baseURL = defaultMastodonBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if accessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	}

	return &MastodonProvider{api: NewAPIClient(baseURL, client)}
}

// Platform returns "mastodon".
func (m *MastodonProvider) Platform() string {
	return "mastodon"
}

// Lookup resolves an account by its acct handle.
//
// Calls GET /api/v1/accounts/lookup.
func (m *MastodonProvider) Lookup(ctx context.Context, acct string) (*MastodonAccount, error) {
	var account MastodonAccount
	query := url.Values{"acct": {acct}}
	if err := m.api.GetJSON(ctx, "/api/v1/accounts/lookup", query, &account); err != nil {
		return nil, fmt.Errorf("failed to look up mastodon account %s: %w", acct, err)
	}
	return &account, nil
}

// FetchPosts returns the newest original statuses of src, excluding boosts.
// Post ids are the status id scoped by the account's container id.
//
// Calls GET /api/v1/accounts/{id}/statuses after resolving the account.
func (m *MastodonProvider) FetchPosts(ctx context.Context, src models.Source, limit int) (*Page[models.Post], error) {
	account, err := m.Lookup(ctx, src.ExternalID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("exclude_reblogs", "true")

	var statuses []MastodonStatus
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/statuses", url.PathEscape(account.ID))
	if err := m.api.GetJSON(ctx, endpoint, query, &statuses); err != nil {
		return nil, fmt.Errorf("failed to fetch statuses for %s: %w", src.ExternalID, err)
	}

	posts := make([]models.Post, 0, len(statuses))
	for _, st := range statuses {
		post := models.Post{
			ID:        shared.CompositeID(src.ContainerID, st.ID),
			AccountID: src.ContainerID,
			Platform:  m.Platform(),
			Content:   htmlText(st.Content),
			PostedAt:  models.NewTimestamp(st.CreatedAt),
			URL:       st.URL,
			Likes:     st.FavouritesCount,
			Shares:    st.ReblogsCount,
			Comments:  st.RepliesCount,
		}
		for _, media := range st.MediaAttachments {
			if media.URL != "" {
				post.MediaURL = media.URL
				break
			}
		}
		posts = append(posts, post)
	}

	return &Page[models.Post]{
		Items: posts,
		Container: &models.ContainerMeta{
			Title:       account.DisplayName,
			Description: htmlText(account.Note),
			ImageURL:    account.Avatar,
			URL:         account.URL,
		},
	}, nil
}

// htmlText flattens status HTML to plain text, keeping paragraph breaks.
func htmlText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	var parts []string
	paragraphs := doc.Find("p")
	if paragraphs.Length() == 0 {
		return strings.TrimSpace(doc.Text())
	}
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}
