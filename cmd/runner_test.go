package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
	tu "github.com/desertthunder/releaseradar/internal/testing"
	"github.com/urfave/cli/v3"
)

// testCLICommand builds the CLI tree around a runner, as main does.
func testCLICommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "releaseradar",
		Commands: r.register(),
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			client := &tu.MockClient{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Client:     client,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.client != client {
				t.Error("expected client to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil client builds a Spotify client", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.client == nil {
				t.Error("expected a default upstream client")
			}
		})
	})

	t.Run("register returns all commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "serve", "run", "users", "artists", "log"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("commands[%d] = %s, want %s", i, commands[i].Name, name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]string{"status": "ok"}, false); err != nil {
			t.Fatalf("writeJSON() error = %v", err)
		}

		if !strings.Contains(output.String(), `"status":"ok"`) {
			t.Errorf("unexpected output: %s", output.String())
		}
	})

	t.Run("writeJSON with failing writer", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

		if err := runner.writeJSON(map[string]string{"status": "ok"}, false); err == nil {
			t.Error("expected error from failing writer")
		}
	})
}

func TestSetup(t *testing.T) {
	wd := tu.MustGetwd(t)
	defer tu.MustChdir(t, wd)

	dir := t.TempDir()
	tu.MustChdir(t, dir)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Client: &tu.MockClient{}})

	app := testCLICommand(runner)
	if err := app.Run(context.Background(), []string{"releaseradar", "setup", "--config", "config.toml"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "releaseradar.db"))

	content := tu.MustReadFile(t, filepath.Join(dir, "config.toml"))
	if !strings.Contains(content, "[scheduler]") {
		t.Error("generated config should contain a scheduler section")
	}

	// Second invocation reuses the existing config and database.
	if err := app.Run(context.Background(), []string{"releaseradar", "setup", "--config", "config.toml"}); err != nil {
		t.Fatalf("repeat setup failed: %v", err)
	}
}

func TestRunOnce(t *testing.T) {
	wd := tu.MustGetwd(t)
	defer tu.MustChdir(t, wd)

	dir := t.TempDir()
	tu.MustChdir(t, dir)

	client := &tu.MockClient{
		ArtistReleasesFn: func(ctx context.Context, token, artistID string, limit int) ([]models.Release, error) {
			return []models.Release{{ID: "r1", URI: "spotify:track:r1", Name: "r1", ReleaseDate: "2025-05-02"}}, nil
		},
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Client: client})
	app := testCLICommand(runner)

	// setup creates the database the run needs.
	if err := app.Run(context.Background(), []string{"releaseradar", "setup", "--config", "config.toml"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// No users registered: the run settles immediately and logs an entry.
	if err := app.Run(context.Background(), []string{"releaseradar", "run", "--config", "config.toml", "--from", "2025-05-01"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(output.String(), "Run complete") {
		t.Errorf("expected run summary in output, got: %s", output.String())
	}

	output.Reset()
	if err := app.Run(context.Background(), []string{"releaseradar", "log", "latest", "--config", "config.toml"}); err != nil {
		t.Fatalf("log latest failed: %v", err)
	}
	if !strings.Contains(output.String(), "SUCCESS") {
		t.Errorf("expected SUCCESS entry, got: %s", output.String())
	}
}

func TestRunOnce_InvalidFromDate(t *testing.T) {
	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Client: &tu.MockClient{}})
	app := testCLICommand(runner)

	err := app.Run(context.Background(), []string{"releaseradar", "run", "--from", "05/01/2025"})
	if err == nil {
		t.Error("expected error for malformed --from date")
	}
}
