package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releaseradar/internal/repositories"
	"github.com/desertthunder/releaseradar/internal/services"
	"github.com/desertthunder/releaseradar/internal/shared"
	"github.com/desertthunder/releaseradar/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	client     services.Client
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Client     services.Client
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
	if opts.Client == nil {
		opts.Client = services.NewSpotifyClient("", opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		client:     opts.Client,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, runCommand, usersCommand, artistsCommand, logCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app bundles the database-backed collaborators a command action needs.
type app struct {
	db        *sql.DB
	users     *repositories.UserRepository
	artists   *repositories.ArtistRepository
	playlists *repositories.PlaylistRepository
	entries   *repositories.ExecutionLogRepository
	auth      *services.Authenticator
	scheduler *tasks.Scheduler
}

// build opens the database and wires the repositories, credential layer, and
// scheduler. The caller owns closing the returned app.
func (r *Runner) build() (*app, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	users := repositories.NewUserRepository(db)
	artists := repositories.NewArtistRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	entries := repositories.NewExecutionLogRepository(db)

	spotify := r.config.Credentials.Spotify
	auth := services.NewAuthenticator(
		services.OAuthConfig(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI),
		users,
		r.logger,
	)

	resolver := tasks.NewResolver(r.client, r.config.Sync, r.logger)
	synchronizer := tasks.NewSynchronizer(
		r.client, auth, artists, playlists, users, resolver,
		r.config.Sync.PlaylistName, r.logger,
	)
	scheduler := tasks.NewScheduler(synchronizer, users, entries, r.config.Scheduler, r.logger)

	return &app{
		db:        db,
		users:     users,
		artists:   artists,
		playlists: playlists,
		entries:   entries,
		auth:      auth,
		scheduler: scheduler,
	}, nil
}

func (a *app) close() {
	a.db.Close()
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
