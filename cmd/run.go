package main

import (
	"context"

	"github.com/desertthunder/xmarc/internal/archive"
	"github.com/desertthunder/xmarc/internal/formatter"
	"github.com/desertthunder/xmarc/internal/services"
	"github.com/urfave/cli/v3"
)

// RunArchive performs one archival pass: fetch the station feed, resolve new
// tracks, and append them to the active volume.
func (r *Runner) RunArchive(ctx context.Context, cmd *cli.Command) error {
	if station := cmd.String("station"); station != "" {
		r.config.Archive.Station = station
	}

	if err := r.config.ValidateRun(); err != nil {
		return err
	}

	spotify, err := r.newSpotifyService(ctx)
	if err != nil {
		return err
	}

	resolver, err := r.newResolver(spotify)
	if err != nil {
		return err
	}

	seen, volume, closeStores, err := r.newStores()
	if err != nil {
		return err
	}
	defer closeStores()

	feed := services.NewXMPlaylistService("", r.config.Archive.Station, r.httpClient)

	archiver := archive.NewArchiver(feed, spotify, resolver, seen, volume, archive.Options{
		OwnerID:           r.config.Credentials.Spotify.UserID,
		Station:           r.config.Archive.Station,
		PlaylistPrefix:    r.config.Archive.PlaylistPrefix,
		CapacityThreshold: r.config.Archive.CapacityThreshold,
		CheckpointSize:    r.config.Archive.CheckpointSize,
	}, r.logger)

	r.logger.Infof("archiving station %v with %v resolution", r.config.Archive.Station, resolver.Name())

	summary, err := archiver.Run(ctx)
	if summary != nil {
		if cmd.Bool("json") {
			if writeErr := r.writeJSON(summary, cmd.Bool("pretty")); writeErr != nil && err == nil {
				err = writeErr
			}
		} else {
			r.writePlain("%s", formatter.RenderSummary(summary))
		}
	}

	return err
}
