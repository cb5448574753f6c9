// package services defines clients for the external collaborators: the
// XMPlaylist feed (read-only source) and the Spotify Web API (destination).
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// FeedTrack is one play event observed in a feed poll. Ephemeral; produced
// fresh each run and never persisted directly.
type FeedTrack struct {
	Title      string
	Artist     string
	SpotifyURL string // same-service cross-reference link, when the feed carries one
}

// FeedService is the read-only source of recently-played tracks.
type FeedService interface {
	// RecentTracks returns the station's recent plays ordered oldest-to-newest.
	RecentTracks(ctx context.Context) ([]FeedTrack, error)

	// Name returns the name of the feed (e.g., "XMPlaylist")
	Name() string
}

// MusicService is the destination side: playlist lifecycle and track appends.
type MusicService interface {
	// Authenticate prepares the authenticated HTTP client. Expects either a
	// "refresh_token" or an "access_token" in credentials.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// CreatePlaylist creates a playlist owned by ownerID and returns its id.
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (string, error)

	// PlaylistTotal returns the playlist's current track count.
	// Returns [shared.ErrPlaylistNotFound] when the playlist no longer exists.
	PlaylistTotal(ctx context.Context, playlistID string) (int, error)

	// RenamePlaylist changes a playlist's display name.
	RenamePlaylist(ctx context.Context, playlistID, name string) error

	// SearchTrack searches for a track by title and artist and returns the
	// top match's URI. Returns [shared.ErrTrackNotFound] when neither the
	// fielded nor the loose query yields a result.
	SearchTrack(ctx context.Context, title, artist string) (string, error)

	// AddTracks appends the URIs to the playlist in order, split into
	// sub-batches the remote API accepts. Sub-batches already applied when a
	// later one fails stay applied.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService is implemented by services supporting the browser
// authorization-code flow used by the auth bootstrap command.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
}
