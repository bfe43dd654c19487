// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by commands that read config.toml.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and config file
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles the OAuth login flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize a Spotify account and register it for nightly syncs",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
		},
	}
}

// serveCommand runs the scheduler and the administrative HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the nightly scheduler and the admin HTTP server",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// runCommand triggers one manual fleet run
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one synchronization run and exit",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "from",
				Usage: "Include releases dated on or after this date (YYYY-MM-DD)",
			},
		},
		Action: r.RunOnce,
	}
}

// usersCommand lists registered users
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Registered user administration",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered users",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.UsersList,
			},
		},
	}
}

// artistsCommand manages a user's saved artists
func artistsCommand(r *Runner) *cli.Command {
	userFlag := &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Spotify profile ID of the owning user",
		Required: true,
	}

	return &cli.Command{
		Name:  "artists",
		Usage: "Saved artist administration",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a user's saved artists",
				Flags: []cli.Flag{
					configFlag(),
					userFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ArtistsList,
			},
			{
				Name:  "follow",
				Usage: "Save artists for a user (defaults to the user's followed artists upstream)",
				Flags: []cli.Flag{
					configFlag(),
					userFlag,
					&cli.StringFlag{
						Name:  "id",
						Usage: "Save a single artist by Spotify ID instead of importing follows",
					},
				},
				Action: r.ArtistsFollow,
			},
			{
				Name:  "unfollow",
				Usage: "Remove a saved artist from a user",
				Flags: []cli.Flag{
					configFlag(),
					userFlag,
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Spotify artist ID to remove",
						Required: true,
					},
				},
				Action: r.ArtistsUnfollow,
			},
		},
	}
}

// logCommand inspects the execution log
func logCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Execution log inspection",
		Commands: []*cli.Command{
			{
				Name:  "latest",
				Usage: "Print the most recent run",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LogLatest,
			},
		},
	}
}
