// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/xmarc/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify accepts at most 100 URIs per append call.
	spotifyMaxBatch = 100
)

// SpotifyTrack represents a Spotify track as returned by search.
type SpotifyTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type playlistTotalResponse struct {
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// SpotifyOpts contains tuning options for a SpotifyService.
type SpotifyOpts struct {
	BatchSize  int           // URIs per append call; clamped to the API maximum of 100
	Pacing     time.Duration // delay between append calls
	HTTPClient *http.Client  // base transport, defaults to http.DefaultClient
	BaseURL    string        // API base URL override, used by tests
}

// SpotifyService implements [MusicService] for the Spotify Web API.
// Uses [oauth2] for the refresh-token flow and paces append calls with a [rate.Limiter].
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseClient *http.Client
	limiter    *rate.Limiter
	batchSize  int
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts SpotifyOpts) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-modify-public",
			"playlist-modify-private",
			"playlist-read-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if opts.BatchSize <= 0 || opts.BatchSize > spotifyMaxBatch {
		opts.BatchSize = spotifyMaxBatch
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}

	var limiter *rate.Limiter
	if opts.Pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pacing), 1)
	}

	return &SpotifyService{
		config:     config,
		baseClient: opts.HTTPClient,
		limiter:    limiter,
		batchSize:  opts.BatchSize,
		baseURL:    opts.BaseURL,
	}, nil
}

// Authenticate prepares the authenticated HTTP client.
//
// With a "refresh_token", a [oauth2.TokenSource] mints short-lived access
// tokens transparently for every request. A plain "access_token" builds a
// static client instead (used by tests and one-off calls).
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)

	if accessToken := credentials["access_token"]; accessToken != "" {
		s.httpClient = s.config.Client(ctx, &oauth2.Token{AccessToken: accessToken})
		return nil
	}

	if refreshToken := credentials["refresh_token"]; refreshToken != "" {
		s.httpClient = s.config.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
		return nil
	}

	return fmt.Errorf("%w: missing refresh_token or access_token", shared.ErrMissingCredentials)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for the local callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// CurrentUser returns the authenticated user's id.
func (s *SpotifyService) CurrentUser(ctx context.Context) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return "", err
	}
	return me.ID, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: status 404", shared.ErrPlaylistNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CreatePlaylist creates a playlist owned by ownerID and returns its id.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (string, error) {
	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created struct {
		ID string `json:"id"`
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: playlist created without an id", shared.ErrAPIRequest)
	}

	return created.ID, nil
}

// PlaylistTotal returns the playlist's current track count, or
// [shared.ErrPlaylistNotFound] when the playlist no longer exists.
func (s *SpotifyService) PlaylistTotal(ctx context.Context, playlistID string) (int, error) {
	var resp playlistTotalResponse
	endpoint := fmt.Sprintf("/playlists/%s?fields=tracks.total", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Tracks.Total, nil
}

// RenamePlaylist changes a playlist's display name.
func (s *SpotifyService) RenamePlaylist(ctx context.Context, playlistID, name string) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, map[string]any{"name": name}, nil)
}

// SearchTrack searches for a track by title and artist and returns the top
// match's URI. A fielded query runs first; when it yields nothing, a single
// looser free-text query combining title and artist is tried before giving
// up with [shared.ErrTrackNotFound].
func (s *SpotifyService) SearchTrack(ctx context.Context, title, artist string) (string, error) {
	queries := []string{
		fmt.Sprintf("track:%s artist:%s", title, artist),
		fmt.Sprintf("%s %s", title, artist),
	}

	for _, q := range queries {
		endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(q))

		var resp searchResponse
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return "", err
		}

		if len(resp.Tracks.Items) > 0 {
			return resp.Tracks.Items[0].URI, nil
		}
	}

	return "", fmt.Errorf("%w: %s - %s", shared.ErrTrackNotFound, artist, title)
}

// AddTracks appends the URIs to the playlist in order, one POST per
// sub-batch of at most the configured batch size, pacing between calls.
//
// The error after a failed sub-batch reports how many URIs were already
// applied; the caller must not assume atomicity across the whole sequence.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for applied := 0; applied < len(uris); applied += s.batchSize {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("appended %d of %d tracks: %w", applied, len(uris), err)
			}
		}

		end := applied + s.batchSize
		if end > len(uris) {
			end = len(uris)
		}

		payload := map[string]any{"uris": uris[applied:end]}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, payload, nil); err != nil {
			return fmt.Errorf("appended %d of %d tracks: %w", applied, len(uris), err)
		}
	}

	return nil
}
