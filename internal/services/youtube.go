// YouTube Data API v3 adapter
//
// Videos are paged from a channel's uploads playlist with an API key.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
)

const defaultYTBaseURL string = "https://www.googleapis.com/youtube/v3"

// YouTubeThumbnail is one thumbnail rendition.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeThumbnails holds the renditions returned in a snippet.
type YouTubeThumbnails struct {
	Default *YouTubeThumbnail `json:"default"`
	Medium  *YouTubeThumbnail `json:"medium"`
	High    *YouTubeThumbnail `json:"high"`
}

// Best returns the medium rendition, then high, then default.
func (t YouTubeThumbnails) Best() string {
	for _, th := range []*YouTubeThumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// YouTubePlaylistItem is an entry of playlistItems.list.
type YouTubePlaylistItem struct {
	Snippet struct {
		PublishedAt string            `json:"publishedAt"`
		ChannelID   string            `json:"channelId"`
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Thumbnails  YouTubeThumbnails `json:"thumbnails"`
		ResourceID  struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

type youtubePlaylistItemsResponse struct {
	NextPageToken string                `json:"nextPageToken"`
	Items         []YouTubePlaylistItem `json:"items"`
}

// YouTubeChannel is an entry of channels.list.
type YouTubeChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Thumbnails  YouTubeThumbnails `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

type youtubeChannelsResponse struct {
	Items []YouTubeChannel `json:"items"`
}

// YouTubeService implements [Adapter] for channel uploads.
type YouTubeService struct {
	api      *APIClient
	apiKey   string
	pageSize int
}

// NewYouTubeService creates a YouTube adapter. pageSize is clamped to the API's 1 to 50 range.
func NewYouTubeService(baseURL, apiKey string, pageSize int, client *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		api:      NewAPIClient(baseURL, client),
		apiKey:   apiKey,
		pageSize: clampPageSize(pageSize),
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// FetchPage retrieves one page of the uploads playlist named by src.ExternalID.
//
// Calls GET /playlistItems. Entries without a video id (deleted or private uploads) are dropped.
// PublishedAt is kept exactly as the API returned it.
func (y *YouTubeService) FetchPage(ctx context.Context, src models.Source, token string) (*Page[models.Video], error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key", shared.ErrMissingConfig)
	}
	if src.ExternalID == "" {
		return nil, fmt.Errorf("%w: channel %s has no uploads playlist", shared.ErrMissingConfig, src.ContainerID)
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("playlistId", src.ExternalID)
	query.Set("maxResults", strconv.Itoa(y.pageSize))
	query.Set("key", y.apiKey)
	if token != "" {
		query.Set("pageToken", token)
	}

	var resp youtubePlaylistItemsResponse
	if err := y.api.GetJSON(ctx, "/playlistItems", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", src.ExternalID, err)
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		s := item.Snippet
		if s.ResourceID.VideoID == "" {
			continue
		}
		videos = append(videos, models.Video{
			ID:           s.ResourceID.VideoID,
			ChannelID:    src.ContainerID,
			Title:        s.Title,
			Description:  s.Description,
			PublishedAt:  s.PublishedAt,
			ThumbnailURL: s.Thumbnails.Best(),
		})
	}

	return &Page[models.Video]{Items: videos, NextToken: resp.NextPageToken}, nil
}

// ChannelInfo resolves a channel's title and uploads playlist.
//
// Calls GET /channels. Returns [shared.ErrNotFound] when the channel does not exist.
func (y *YouTubeService) ChannelInfo(ctx context.Context, channelID string) (*YouTubeChannel, error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key", shared.ErrMissingConfig)
	}

	query := url.Values{}
	query.Set("part", "snippet,contentDetails")
	query.Set("id", channelID)
	query.Set("key", y.apiKey)

	var resp youtubeChannelsResponse
	if err := y.api.GetJSON(ctx, "/channels", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: youtube channel %s", shared.ErrNotFound, channelID)
	}

	return &resp.Items[0], nil
}
