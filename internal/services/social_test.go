package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
)

const mastodonAccount = `{
  "id": "109",
  "username": "marxists",
  "acct": "marxists",
  "display_name": "Marxists Internet Archive",
  "note": "<p>Archive of writings</p>",
  "url": "https://mastodon.social/@marxists",
  "avatar": "https://files.mastodon.social/avatar.png"
}`

const mastodonStatuses = `[
  {
    "id": "111",
    "created_at": "2024-03-01T12:00:00.000Z",
    "url": "https://mastodon.social/@marxists/111",
    "content": "<p>New upload:</p><p>Capital, Volume I</p>",
    "favourites_count": 12,
    "reblogs_count": 4,
    "replies_count": 1,
    "media_attachments": [{"type": "image", "url": "https://files.mastodon.social/capital.png"}]
  },
  {
    "id": "110",
    "created_at": "2024-02-28T08:00:00.000Z",
    "url": "https://mastodon.social/@marxists/110",
    "content": "plain",
    "favourites_count": 0,
    "reblogs_count": 0,
    "replies_count": 0,
    "media_attachments": []
  }
]`

func newMastodonServer(t *testing.T, wantAuth string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("expected Authorization %q, got %q", wantAuth, got)
		}
		switch r.URL.Path {
		case "/api/v1/accounts/lookup":
			if r.URL.Query().Get("acct") != "marxists" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(mastodonAccount))
		case "/api/v1/accounts/109/statuses":
			if r.URL.Query().Get("limit") != "5" {
				t.Errorf("expected limit 5, got %s", r.URL.Query().Get("limit"))
			}
			if r.URL.Query().Get("exclude_reblogs") != "true" {
				t.Error("expected reblogs to be excluded")
			}
			w.Write([]byte(mastodonStatuses))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSocialService(t *testing.T) {
	src := models.Source{
		Family:      models.FamilyPosts,
		ContainerID: "mastodon_marxists",
		ExternalID:  "marxists",
		Platform:    "Mastodon",
	}

	t.Run("dispatches to provider", func(t *testing.T) {
		server := newMastodonServer(t, "")
		svc := NewSocialService(5, NewMastodonProvider(server.URL, "", server.Client()))

		if !svc.Supports("mastodon") {
			t.Fatal("expected mastodon to be supported")
		}

		page, err := svc.FetchPage(context.Background(), src, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.NextToken != "" {
			t.Errorf("social pages have no continuation, got %s", page.NextToken)
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected 2 posts, got %d", len(page.Items))
		}

		p := page.Items[0]
		if p.ID != "mastodon_marxists_111" || p.AccountID != "mastodon_marxists" || p.Platform != "mastodon" {
			t.Errorf("unexpected identity %+v", p)
		}
		if p.Content != "New upload:\n\nCapital, Volume I" {
			t.Errorf("expected flattened content, got %q", p.Content)
		}
		if p.Likes != 12 || p.Shares != 4 || p.Comments != 1 {
			t.Errorf("unexpected counters %d/%d/%d", p.Likes, p.Shares, p.Comments)
		}
		if p.MediaURL != "https://files.mastodon.social/capital.png" {
			t.Errorf("unexpected media url %s", p.MediaURL)
		}
		if p.PostedAt.String() != "2024-03-01T12:00:00.000000000Z" {
			t.Errorf("unexpected posted_at %s", p.PostedAt)
		}
		if page.Items[1].Content != "plain" || page.Items[1].MediaURL != "" {
			t.Errorf("unexpected second post %+v", page.Items[1])
		}

		if page.Container == nil || page.Container.Title != "Marxists Internet Archive" {
			t.Errorf("expected account metadata, got %+v", page.Container)
		}
	})

	t.Run("post ids are scoped by account", func(t *testing.T) {
		server := newMastodonServer(t, "")
		svc := NewSocialService(5, NewMastodonProvider(server.URL, "", server.Client()))

		other := src
		other.ContainerID = "mastodon_marxists_mirror"
		a, err := svc.FetchPage(context.Background(), src, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		b, err := svc.FetchPage(context.Background(), other, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if a.Items[0].ID == b.Items[0].ID {
			t.Errorf("expected distinct ids for the same status under two accounts, got %s", a.Items[0].ID)
		}
		if b.Items[0].ID != "mastodon_marxists_mirror_111" {
			t.Errorf("unexpected id %s", b.Items[0].ID)
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		svc := NewSocialService(5)
		twitter := src
		twitter.Platform = "twitter"

		page, err := svc.FetchPage(context.Background(), twitter, "")
		if !errors.Is(err, shared.ErrNoProvider) {
			t.Errorf("expected ErrNoProvider, got %v", err)
		}
		if page != nil {
			t.Errorf("expected no page, got %+v", page)
		}
	})

	t.Run("missing username", func(t *testing.T) {
		svc := NewSocialService(5, NewMastodonProvider("http://unused", "", nil))
		noUser := src
		noUser.ExternalID = ""
		if _, err := svc.FetchPage(context.Background(), noUser, ""); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		server := newMastodonServer(t, "")
		svc := NewSocialService(5, NewMastodonProvider(server.URL, "", server.Client()))
		unknown := src
		unknown.ExternalID = "nobody"
		if _, err := svc.FetchPage(context.Background(), unknown, ""); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		if svc := NewSocialService(0); svc.limit != defaultPostLimit {
			t.Errorf("expected limit %d, got %d", defaultPostLimit, svc.limit)
		}
	})
}

func TestMastodonProvider(t *testing.T) {
	t.Run("bearer token", func(t *testing.T) {
		server := newMastodonServer(t, "Bearer s3cret")
		p := NewMastodonProvider(server.URL, "s3cret", server.Client())

		account, err := p.Lookup(context.Background(), "marxists")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if account.ID != "109" {
			t.Errorf("expected account id 109, got %s", account.ID)
		}
	})

	t.Run("default base url", func(t *testing.T) {
		if p := NewMastodonProvider("", "", nil); p.api.BaseURL() != defaultMastodonBaseURL {
			t.Errorf("expected %s, got %s", defaultMastodonBaseURL, p.api.BaseURL())
		}
	})
}

func TestHTMLText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"plain", "  hello ", "hello"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\n\ntwo"},
		{"inline", `<span>a <a href="#">link</a></span>`, "a link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlText(tt.html); got != tt.want {
				t.Errorf("htmlText() = %q, want %q", got, tt.want)
			}
		})
	}
}
