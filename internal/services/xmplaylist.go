// XMPlaylist API implementation of [FeedService]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/xmarc/internal/shared"
)

const xmplaylistBaseURL = "https://xmplaylist.com/api"

type feedItem struct {
	Song       string `json:"song"`
	Artist     string `json:"artist"`
	SpotifyURL string `json:"spotify,omitempty"`
}

type feedResponse struct {
	Tracks []feedItem `json:"tracks"`
}

// XMPlaylistService implements [FeedService] for the XMPlaylist station API.
type XMPlaylistService struct {
	baseURL    string
	station    string
	httpClient *http.Client
}

// NewXMPlaylistService creates a feed client for the given station.
// An empty baseURL uses the public XMPlaylist API.
func NewXMPlaylistService(baseURL, station string, client *http.Client) *XMPlaylistService {
	if baseURL == "" {
		baseURL = xmplaylistBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &XMPlaylistService{
		baseURL:    baseURL,
		station:    station,
		httpClient: client,
	}
}

func (s *XMPlaylistService) Name() string {
	return "XMPlaylist"
}

// RecentTracks fetches the station's recent plays.
//
// The upstream API returns newest-first; the result is reversed into
// broadcast order so archive volumes read oldest-to-newest. Items missing a
// title or artist are dropped.
func (s *XMPlaylistService) RecentTracks(ctx context.Context) ([]FeedTrack, error) {
	endpoint := fmt.Sprintf("%s/station/%s", s.baseURL, url.PathEscape(s.station))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: xmplaylist status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	tracks := make([]FeedTrack, 0, len(feed.Tracks))
	for i := len(feed.Tracks) - 1; i >= 0; i-- {
		item := feed.Tracks[i]
		title := strings.TrimSpace(item.Song)
		artist := strings.TrimSpace(item.Artist)
		if title == "" || artist == "" {
			continue
		}
		tracks = append(tracks, FeedTrack{
			Title:      title,
			Artist:     artist,
			SpotifyURL: item.SpotifyURL,
		})
	}

	return tracks, nil
}
