// package models defines the data model for the content aggregator
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/aggx/internal/shared"
)

// Family names one kind of aggregated content.
type Family string

const (
	FamilyVideos   Family = "videos"
	FamilyArticles Family = "articles"
	FamilyPosts    Family = "posts"
	FamilyReading  Family = "reading"
)

// DefaultSection is assigned to containers and reading materials created without one.
const DefaultSection = "general"

// SectionAll disables section filtering in listings.
const SectionAll = "all"

var familyAliases = map[string]Family{
	"videos":       FamilyVideos,
	"video":        FamilyVideos,
	"articles":     FamilyArticles,
	"article":      FamilyArticles,
	"rss":          FamilyArticles,
	"posts":        FamilyPosts,
	"post":         FamilyPosts,
	"social":       FamilyPosts,
	"reading":      FamilyReading,
	"reading-list": FamilyReading,
}

// ParseFamily resolves a family name or one of its aliases ("rss", "social", "reading-list").
func ParseFamily(name string) (Family, error) {
	if f, ok := familyAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown family %q", shared.ErrInvalidArgument, name)
}

// Families returns every family in listing order.
func Families() []Family {
	return []Family{FamilyVideos, FamilyArticles, FamilyPosts, FamilyReading}
}

// SyncFamilies returns the families ingested from remote providers.
func SyncFamilies() []Family {
	return []Family{FamilyVideos, FamilyArticles, FamilyPosts}
}

func (f Family) String() string { return string(f) }

// Syncable reports whether items of this family are fetched from a provider.
func (f Family) Syncable() bool { return f != FamilyReading && f != "" }

// TimeLayout is the fixed-width UTC text form used to persist timestamps.
// Lexical order of values in this layout equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp is a [time.Time] persisted as [TimeLayout] text.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, converted to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Now returns the current instant as a [Timestamp].
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// ParseTimestamp parses [TimeLayout] text, falling back to RFC 3339.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return NewTimestamp(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: invalid timestamp %q", shared.ErrInvalidInput, s)
	}
	return NewTimestamp(t), nil
}

// String formats the timestamp in [TimeLayout].
func (t Timestamp) String() string {
	return t.UTC().Format(TimeLayout)
}

// Value implements [driver.Valuer].
func (t Timestamp) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements [sql.Scanner] for text and native time columns.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*t = parsed
	case []byte:
		parsed, err := ParseTimestamp(string(v))
		if err != nil {
			return err
		}
		*t = parsed
	case time.Time:
		*t = NewTimestamp(v)
	case nil:
		*t = Timestamp{}
	default:
		return fmt.Errorf("%w: cannot scan %T into Timestamp", shared.ErrInvalidInput, src)
	}
	return nil
}

// Item is a listable row: an identifier plus the key it is ordered by.
type Item interface {
	ItemID() string
	SortKey() string
}

// Channel is a YouTube channel. UploadsPlaylistID is where its uploads are paged from.
type Channel struct {
	ID                string     `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Section           string     `db:"section" json:"section"`
	UploadsPlaylistID string     `db:"uploads_playlist_id" json:"uploadsPlaylistId"`
	LastSyncedAt      *Timestamp `db:"last_synced_at" json:"lastSyncedAt,omitempty"`
}

// Source describes the channel to the sync loop.
func (c Channel) Source() Source {
	return Source{Family: FamilyVideos, ContainerID: c.ID, ExternalID: c.UploadsPlaylistID, Section: c.Section, Title: c.Title}
}

// Feed is an RSS or Atom feed. Its ID is derived from its title.
type Feed struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	URL          string     `db:"url" json:"url"`
	Description  string     `db:"description" json:"description"`
	Section      string     `db:"section" json:"section"`
	LastSyncedAt *Timestamp `db:"last_synced_at" json:"lastSyncedAt,omitempty"`
}

// Source describes the feed to the sync loop.
func (f Feed) Source() Source {
	return Source{Family: FamilyArticles, ContainerID: f.ID, ExternalID: f.URL, Section: f.Section, Title: f.Title}
}

// Account is a social account. Its ID is derived from platform and username.
type Account struct {
	ID           string     `db:"id" json:"id"`
	Platform     string     `db:"platform" json:"platform"`
	Username     string     `db:"username" json:"username"`
	DisplayName  string     `db:"display_name" json:"displayName"`
	ProfileURL   string     `db:"profile_url" json:"profileUrl"`
	AvatarURL    string     `db:"avatar_url" json:"avatarUrl"`
	Section      string     `db:"section" json:"section"`
	LastSyncedAt *Timestamp `db:"last_synced_at" json:"lastSyncedAt,omitempty"`
}

// Source describes the account to the sync loop.
func (a Account) Source() Source {
	return Source{
		Family:      FamilyPosts,
		ContainerID: a.ID,
		ExternalID:  a.Username,
		Platform:    a.Platform,
		Section:     a.Section,
		Title:       a.DisplayName,
	}
}

// Video is one upload. PublishedAt keeps the provider's string unchanged.
type Video struct {
	ID           string `db:"id" json:"id"`
	ChannelID    string `db:"channel_id" json:"channelId"`
	Title        string `db:"title" json:"title"`
	Description  string `db:"description" json:"description"`
	PublishedAt  string `db:"published_at" json:"publishedAt"`
	ThumbnailURL string `db:"thumbnail_url" json:"thumbnailUrl"`
}

func (v Video) ItemID() string  { return v.ID }
func (v Video) SortKey() string { return v.PublishedAt }

// Article is one feed entry.
type Article struct {
	ID          string    `db:"id" json:"id"`
	FeedID      string    `db:"feed_id" json:"feedId"`
	Title       string    `db:"title" json:"title"`
	Link        string    `db:"link" json:"link"`
	Author      string    `db:"author" json:"author"`
	PublishedAt Timestamp `db:"published_at" json:"publishedAt"`
	Summary     string    `db:"summary" json:"summary"`
	Content     string    `db:"content" json:"content"`
	ImageURL    string    `db:"image_url" json:"imageUrl"`
}

func (a Article) ItemID() string  { return a.ID }
func (a Article) SortKey() string { return a.PublishedAt.String() }

// Post is one social post. Counters default to zero.
type Post struct {
	ID        string    `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"accountId"`
	Platform  string    `db:"platform" json:"platform"`
	Content   string    `db:"content" json:"content"`
	PostedAt  Timestamp `db:"posted_at" json:"postedAt"`
	URL       string    `db:"url" json:"url"`
	MediaURL  string    `db:"media_url" json:"mediaUrl"`
	Likes     int       `db:"likes" json:"likes"`
	Shares    int       `db:"shares" json:"shares"`
	Comments  int       `db:"comments" json:"comments"`
}

func (p Post) ItemID() string  { return p.ID }
func (p Post) SortKey() string { return p.PostedAt.String() }

// Difficulty levels for reading materials.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// ReadingMaterial is a curated text. Its ID is derived from title and author.
type ReadingMaterial struct {
	ID              string   `db:"id" json:"id"`
	Title           string   `db:"title" json:"title"`
	Author          string   `db:"author" json:"author"`
	Description     string   `db:"description" json:"description"`
	Difficulty      string   `db:"difficulty" json:"difficulty"`
	Section         string   `db:"section" json:"section"`
	CoverURL        string   `db:"cover_url" json:"coverUrl"`
	PDFURL          string   `db:"pdf_url" json:"pdfUrl"`
	AudioURL        string   `db:"audio_url" json:"audioUrl"`
	ExternalURL     string   `db:"external_url" json:"externalUrl"`
	PublicationYear string   `db:"publication_year" json:"publicationYear"`
	Pages           int      `db:"pages" json:"pages"`
	ReadingTime     int      `db:"reading_time" json:"readingTime"`
	Tags            []string `db:"-" json:"tags"`
}

func (m ReadingMaterial) ItemID() string  { return m.ID }
func (m ReadingMaterial) SortKey() string { return m.ID }

// Tag labels reading materials. Names are unique.
type Tag struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ContainerMeta describes a container as reported by its provider.
type ContainerMeta struct {
	Title       string
	Description string
	ImageURL    string
	URL         string
	// ExternalID is the provider handle items are fetched with (e.g. the uploads playlist id).
	ExternalID string
}

// Source is the sync loop's view of a container.
//
// ExternalID is what the provider is queried with: the uploads playlist id for channels,
// the URL for feeds and the username for accounts.
type Source struct {
	Family      Family
	ContainerID string
	ExternalID  string
	Platform    string
	Section     string
	Title       string
}

// VideoView is a video joined with its channel.
type VideoView struct {
	Video
	ChannelTitle string `db:"channel_title" json:"channelTitle"`
	Section      string `db:"section" json:"section"`
}

// ArticleView is an article joined with its feed.
type ArticleView struct {
	Article
	FeedTitle string `db:"feed_title" json:"feedTitle"`
	Section   string `db:"section" json:"section"`
}

// PostView is a post joined with its account.
type PostView struct {
	Post
	Author         string `db:"author_name" json:"author"`
	AuthorImageURL string `db:"author_image_url" json:"authorImageUrl"`
	Section        string `db:"section" json:"section"`
}
