package main

import (
	"context"

	"github.com/desertthunder/xmarc/internal/formatter"
	"github.com/urfave/cli/v3"
)

// State shows the persisted archive state: active volume, playlist pointer,
// and seen-set size.
func (r *Runner) State(ctx context.Context, cmd *cli.Command) error {
	seenStore, volumeStore, closeStores, err := r.newStores()
	if err != nil {
		return err
	}
	defer closeStores()

	seen, err := seenStore.Load()
	if err != nil {
		return err
	}
	volume, err := volumeStore.Load()
	if err != nil {
		return err
	}

	state := &formatter.ArchiveState{
		Station:    r.config.Archive.Station,
		Resolver:   r.config.Archive.Resolver,
		Volume:     volume.Volume,
		PlaylistID: volume.PlaylistID,
		SeenCount:  seen.Len(),
	}

	if cmd.Bool("json") {
		return r.writeJSON(state, cmd.Bool("pretty"))
	}

	return r.writePlain("%s", formatter.RenderState(state))
}
