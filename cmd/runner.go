package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xmarc/internal/archive"
	"github.com/desertthunder/xmarc/internal/repositories"
	"github.com/desertthunder/xmarc/internal/services"
	"github.com/desertthunder/xmarc/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, stateCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newSpotifyService builds the destination service from the runner's config
// and authenticates it with the stored refresh token.
func (r *Runner) newSpotifyService(ctx context.Context) (*services.SpotifyService, error) {
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map(), services.SpotifyOpts{
		BatchSize:  r.config.Archive.BatchSize,
		Pacing:     r.config.Archive.Pacing(),
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	if err := spotify.Authenticate(ctx, r.config.Credentials.Spotify.Map()); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	return spotify, nil
}

// newStores builds the seen-set and volume stores for the configured backend.
// The returned closer releases the sqlite handle; it is a no-op for files.
func (r *Runner) newStores() (repositories.Store[*archive.SeenSet], repositories.Store[*archive.VolumeState], func() error, error) {
	noop := func() error { return nil }

	switch r.config.State.Backend {
	case "sqlite":
		db, err := shared.NewDatabase(r.config.State.DatabasePath)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to open state database: %w", err)
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("failed to run migrations: %w", err)
		}

		seen := repositories.NewSQLiteStore(db, "seen", archive.NewSeenSet)
		volume := repositories.NewSQLiteStore(db, "volume", archive.NewVolumeState)
		return seen, volume, db.Close, nil

	default:
		dir := r.config.State.Dir
		if dir == "" {
			dir = "."
		}
		seen := repositories.NewFileStore(filepath.Join(dir, "seen.json"), archive.NewSeenSet)
		volume := repositories.NewFileStore(filepath.Join(dir, "volume.json"), archive.NewVolumeState)
		return seen, volume, noop, nil
	}
}

// newResolver builds the configured track resolution strategy.
func (r *Runner) newResolver(music services.MusicService) (archive.Resolver, error) {
	switch r.config.Archive.Resolver {
	case "link":
		return archive.LinkResolver{}, nil
	case "search":
		return archive.NewSearchResolver(music), nil
	default:
		return nil, fmt.Errorf("%w: unknown resolver %q", shared.ErrInvalidConfig, r.config.Archive.Resolver)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
