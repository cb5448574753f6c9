package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/xmarc/internal/services"
	"github.com/desertthunder/xmarc/internal/shared"
)

// Resolver maps a feed track to its canonical dedup key and to an
// appendable Spotify URI. A deployment picks exactly one strategy; mixing
// strategies against the same seen-set would produce inconsistent key
// formats and break deduplication.
type Resolver interface {
	// Key returns the canonical key for a feed track, or false when no key
	// can be derived from it.
	Key(track services.FeedTrack) (string, bool)

	// Resolve returns the track's Spotify URI.
	// Returns [shared.ErrTrackNotFound] when the track cannot be located;
	// any other error is a transport failure.
	Resolve(ctx context.Context, track services.FeedTrack) (string, error)

	Name() string
}

// LinkResolver extracts the Spotify track id straight out of the feed
// item's cross-reference link. Deterministic and free of network calls;
// preferred when the feed carries links. The native id doubles as the
// canonical key.
type LinkResolver struct{}

func (LinkResolver) Name() string { return "link" }

func (LinkResolver) Key(track services.FeedTrack) (string, bool) {
	return ParseSpotifyTrackID(track.SpotifyURL)
}

func (LinkResolver) Resolve(_ context.Context, track services.FeedTrack) (string, error) {
	id, ok := ParseSpotifyTrackID(track.SpotifyURL)
	if !ok {
		return "", fmt.Errorf("%w: no spotify link for %s - %s", shared.ErrTrackNotFound, track.Artist, track.Title)
	}
	return "spotify:track:" + id, nil
}

// SearchResolver locates tracks through the destination's search API,
// keying on the normalized artist/title pair.
type SearchResolver struct {
	music services.MusicService
}

// NewSearchResolver creates a resolver backed by the service's search capability.
func NewSearchResolver(music services.MusicService) *SearchResolver {
	return &SearchResolver{music: music}
}

func (r *SearchResolver) Name() string { return "search" }

func (r *SearchResolver) Key(track services.FeedTrack) (string, bool) {
	return shared.NormalizeTrackKey(track.Title, track.Artist), true
}

func (r *SearchResolver) Resolve(ctx context.Context, track services.FeedTrack) (string, error) {
	return r.music.SearchTrack(ctx, track.Title, track.Artist)
}

// ParseSpotifyTrackID pulls the track id out of an open.spotify.com track
// URL or a spotify:track: URI.
func ParseSpotifyTrackID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}

	if id, ok := strings.CutPrefix(link, "spotify:track:"); ok {
		return id, id != ""
	}

	u, err := url.Parse(link)
	if err != nil || !strings.HasSuffix(u.Hostname(), "spotify.com") {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "track" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], true
		}
	}

	return "", false
}
