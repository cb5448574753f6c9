package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xmarc/internal/repositories"
	"github.com/desertthunder/xmarc/internal/services"
	"github.com/desertthunder/xmarc/internal/shared"
)

// Options contains rotation and naming settings for an [Archiver].
type Options struct {
	OwnerID           string // destination user owning the archive playlists
	Station           string // feed station, used in playlist descriptions
	PlaylistPrefix    string // display-name prefix for volumes
	CapacityThreshold int    // rotate once the active playlist reaches this count
	CheckpointSize    int    // buffered tracks per flush/checkpoint
}

// RunSummary reports what one archival pass did.
type RunSummary struct {
	RunID      string `json:"run_id"`
	Volume     int    `json:"volume"`
	PlaylistID string `json:"playlist_id"`
	Fetched    int    `json:"fetched"`
	Appended   int    `json:"appended"`
	Skipped    int    `json:"skipped"`
	Unresolved int    `json:"unresolved"`
	Rotations  int    `json:"rotations"`
}

// Archiver is the rotation controller. One Run performs a full pass over
// the freshly fetched feed; no concurrent runs are assumed against the same
// persisted state.
type Archiver struct {
	feed     services.FeedService
	music    services.MusicService
	resolver Resolver
	seen     repositories.Store[*SeenSet]
	volume   repositories.Store[*VolumeState]
	opts     Options
	logger   *log.Logger
}

// NewArchiver creates an archiver from its collaborators.
func NewArchiver(
	feed services.FeedService,
	music services.MusicService,
	resolver Resolver,
	seen repositories.Store[*SeenSet],
	volume repositories.Store[*VolumeState],
	opts Options,
	logger *log.Logger,
) *Archiver {
	if opts.CheckpointSize <= 0 {
		opts.CheckpointSize = 50
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Archiver{
		feed:     feed,
		music:    music,
		resolver: resolver,
		seen:     seen,
		volume:   volume,
		opts:     opts,
		logger:   logger,
	}
}

// Run performs one archival pass and returns its summary.
//
// State on disk always corresponds to a prefix of successfully appended
// tracks: the seen-set and volume pointer are saved only after a flush
// lands, and a failed flush ends the run without persisting the remainder.
func (a *Archiver) Run(ctx context.Context) (*RunSummary, error) {
	seen, err := a.seen.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load seen set: %w", err)
	}
	state, err := a.volume.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load volume state: %w", err)
	}

	summary := &RunSummary{RunID: shared.GenerateID()}
	defer func() {
		summary.Volume = state.Volume
		summary.PlaylistID = state.PlaylistID
	}()

	a.logger.Info("starting archival run", "run", summary.RunID, "station", a.opts.Station)

	total, err := a.ensurePlaylist(ctx, state, summary)
	if err != nil {
		return summary, err
	}

	tracks, err := a.feed.RecentTracks(ctx)
	if err != nil {
		a.logger.Error("feed fetch failed, nothing to do this run", "error", err)
		return summary, nil
	}
	summary.Fetched = len(tracks)
	a.logger.Infof("fetched %d feed tracks to consider", len(tracks))

	buffer := make([]string, 0, a.opts.CheckpointSize)
	for _, track := range tracks {
		key, ok := a.resolver.Key(track)
		if !ok || seen.Contains(key) {
			summary.Skipped++
			continue
		}

		uri, err := a.resolver.Resolve(ctx, track)
		if errors.Is(err, shared.ErrTrackNotFound) {
			a.logger.Info("not found on destination", "artist", track.Artist, "title", track.Title)
			// Marking misses as seen stops every future run from re-querying
			// a permanently unresolvable track.
			seen.Add(key)
			summary.Unresolved++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("resolve failed for %s - %s: %w", track.Artist, track.Title, err)
		}

		// Rotate before the buffered batch would cross the rotation point:
		// flush to the current volume first so no batch spans two playlists.
		if total+len(buffer)+1 > a.opts.CapacityThreshold {
			if err := a.flush(ctx, state, seen, buffer); err != nil {
				return summary, err
			}
			summary.Appended += len(buffer)
			buffer = buffer[:0]

			if err := a.rotate(ctx, state, summary); err != nil {
				return summary, err
			}
			total = 0
		}

		buffer = append(buffer, uri)
		seen.Add(key)

		if len(buffer) >= a.opts.CheckpointSize {
			if err := a.flush(ctx, state, seen, buffer); err != nil {
				return summary, err
			}
			summary.Appended += len(buffer)
			total += len(buffer)
			buffer = buffer[:0]
		}
	}

	if err := a.flush(ctx, state, seen, buffer); err != nil {
		return summary, err
	}
	summary.Appended += len(buffer)

	// Unresolved marks recorded since the last checkpoint still need saving.
	if err := a.checkpoint(seen, state); err != nil {
		return summary, err
	}

	a.logger.Infof("run complete: %d appended, %d skipped, %d unresolved", summary.Appended, summary.Skipped, summary.Unresolved)
	return summary, nil
}

// ensurePlaylist makes sure a writable volume exists and returns its
// current track count.
func (a *Archiver) ensurePlaylist(ctx context.Context, state *VolumeState, summary *RunSummary) (int, error) {
	if state.PlaylistID == "" {
		return 0, a.createVolume(ctx, state)
	}

	total, err := a.music.PlaylistTotal(ctx, state.PlaylistID)
	if err != nil {
		// Any metadata lookup failure is treated as a missing playlist.
		a.logger.Warn("active playlist lookup failed, starting a new volume", "playlist", state.PlaylistID, "error", err)
		state.Volume++
		summary.Rotations++
		return 0, a.createVolume(ctx, state)
	}

	if total >= a.opts.CapacityThreshold {
		a.logger.Infof("volume %d holds %d tracks (threshold %d), rotating", state.Volume, total, a.opts.CapacityThreshold)
		return 0, a.rotate(ctx, state, summary)
	}

	return total, nil
}

// rotate closes out the active volume and opens the next one.
func (a *Archiver) rotate(ctx context.Context, state *VolumeState, summary *RunSummary) error {
	a.closeVolume(ctx, state)
	state.Volume++
	summary.Rotations++
	return a.createVolume(ctx, state)
}

// closeVolume renames the outgoing playlist with a closed marker. Best
// effort; the rotation proceeds even when the rename fails.
func (a *Archiver) closeVolume(ctx context.Context, state *VolumeState) {
	if state.PlaylistID == "" {
		return
	}
	closed := a.volumeName(state.Volume) + " (closed)"
	if err := a.music.RenamePlaylist(ctx, state.PlaylistID, closed); err != nil {
		a.logger.Warn("failed to rename outgoing volume", "playlist", state.PlaylistID, "error", err)
	}
}

// createVolume creates the playlist for the state's current volume number
// and persists the updated pointer.
func (a *Archiver) createVolume(ctx context.Context, state *VolumeState) error {
	name := a.volumeName(state.Volume)
	description := fmt.Sprintf("Archive of %s, volume %d (auto-generated).", a.opts.Station, state.Volume)

	id, err := a.music.CreatePlaylist(ctx, a.opts.OwnerID, name, description, false)
	if err != nil {
		return fmt.Errorf("failed to create volume %d: %w", state.Volume, err)
	}
	state.PlaylistID = id

	if err := a.volume.Save(state); err != nil {
		return fmt.Errorf("failed to persist volume state: %w", err)
	}

	a.logger.Infof("created %s (id=%s)", name, id)
	return nil
}

func (a *Archiver) volumeName(volume int) string {
	return fmt.Sprintf("%s — Vol. %d", a.opts.PlaylistPrefix, volume)
}

// flush appends the buffered URIs to the active volume, then checkpoints.
// A failed append ends the run before anything new is persisted, keeping
// the on-disk seen-set a prefix of what actually landed.
func (a *Archiver) flush(ctx context.Context, state *VolumeState, seen *SeenSet, buffer []string) error {
	if len(buffer) == 0 {
		return nil
	}

	if err := a.music.AddTracks(ctx, state.PlaylistID, buffer); err != nil {
		return fmt.Errorf("failed to append to volume %d: %w", state.Volume, err)
	}

	return a.checkpoint(seen, state)
}

func (a *Archiver) checkpoint(seen *SeenSet, state *VolumeState) error {
	if err := a.seen.Save(seen); err != nil {
		return fmt.Errorf("failed to persist seen set: %w", err)
	}
	if err := a.volume.Save(state); err != nil {
		return fmt.Errorf("failed to persist volume state: %w", err)
	}
	return nil
}
