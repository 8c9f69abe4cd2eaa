package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/cache"
	"github.com/tasteos/cookmode/internal/devserver"
	"github.com/tasteos/cookmode/internal/shared"
	tu "github.com/tasteos/cookmode/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner wires a runner against an in-process reference server and
// returns it together with its output buffer.
func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	engine := devserver.NewEngine(nil)
	srv := httptest.NewServer(devserver.NewServer(engine, nil).Handler())
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.API.BaseURL = srv.URL + "/api/v1"

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Store:  cache.NewStore(db, nil),
		Output: output,
	})
	return runner, output
}

func run(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "cookmode", Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"cookmode"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			client := api.NewClient(config.API, logger)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "config.toml",
				Client:     client,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "config.toml" {
				t.Error("expected configPath to be set")
			}
			if runner.client != client {
				t.Error("expected client to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("builds client and controller when omitted", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.client == nil {
				t.Error("expected client to be constructed")
			}
			if runner.ctrl == nil {
				t.Error("expected controller to be constructed")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("recipes lists built-in recipes", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "recipes"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "rec_risotto") {
			t.Errorf("expected recipe list to contain rec_risotto, got %s", result)
		}
		if !strings.Contains(result, "Mushroom Risotto") {
			t.Errorf("expected recipe name in output, got %s", result)
		}
	})

	t.Run("session lifecycle", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}
		if !strings.Contains(output.String(), "Mushroom Risotto") {
			t.Errorf("expected session text to name the recipe, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "session", "step", "next"); err != nil {
			t.Fatalf("failed to advance: %v", err)
		}
		if !strings.Contains(output.String(), "Step 2 of") {
			t.Errorf("expected to land on step 2, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "session", "check", "--step", "0", "--bullet", "1"); err != nil {
			t.Fatalf("failed to toggle bullet: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "session", "rescale", "--servings", "4"); err != nil {
			t.Fatalf("failed to rescale: %v", err)
		}
		if !strings.Contains(output.String(), "Scaled 2x for 4 servings") {
			t.Errorf("expected scaled ingredient banner, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "session", "adjust", "used brown rice"); err != nil {
			t.Fatalf("failed to adjust: %v", err)
		}
		if !strings.Contains(output.String(), "used brown rice") {
			t.Errorf("expected adjustment confirmation, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "session", "adjustments"); err != nil {
			t.Fatalf("failed to list adjustments: %v", err)
		}
		if !strings.Contains(output.String(), "1. ") || !strings.Contains(output.String(), "used brown rice") {
			t.Errorf("expected numbered adjustment list, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "session", "end"); err != nil {
			t.Fatalf("failed to end session: %v", err)
		}
		if !strings.Contains(output.String(), "completed") {
			t.Errorf("expected completion confirmation, got %s", output.String())
		}
	})

	t.Run("step goto rejects bad index", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		if err := run(t, runner, "session", "step", "goto", "zero"); err == nil {
			t.Fatal("expected error for non-numeric step")
		}
	})

	t.Run("timer create and list", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "timer", "create", "--label", "saute", "--seconds", "90"); err != nil {
			t.Fatalf("failed to create timer: %v", err)
		}
		if !strings.Contains(output.String(), "saute") {
			t.Errorf("expected timer label in output, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "timer", "list"); err != nil {
			t.Fatalf("failed to list timers: %v", err)
		}
		if !strings.Contains(output.String(), "saute") {
			t.Errorf("expected created timer in list, got %s", output.String())
		}
	})

	t.Run("timer create requires a duration", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_roast_chicken"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		// step 0 of the roast is untimed and no --seconds is given
		if err := run(t, runner, "timer", "create", "--step", "0"); err == nil {
			t.Fatal("expected error for untimed step without --seconds")
		}
	})

	t.Run("suggest list surfaces the timer hint", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}
		// step 1 is timed, so a timer suggestion is expected there
		if err := run(t, runner, "session", "step", "next"); err != nil {
			t.Fatalf("failed to advance: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "suggest", "list"); err != nil {
			t.Fatalf("failed to list suggestions: %v", err)
		}
		if !strings.Contains(output.String(), "timer") {
			t.Errorf("expected a timer suggestion, got %s", output.String())
		}
	})

	t.Run("assist answers a substitute question", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "assist", "--intent", "substitute"); err != nil {
			t.Fatalf("assist failed: %v", err)
		}
		if output.Len() == 0 {
			t.Error("expected assist output")
		}
	})

	t.Run("assist rejects unknown intent", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := run(t, runner, "assist", "--intent", "gossip"); err == nil {
			t.Fatal("expected error for unknown intent")
		}
	})

	t.Run("cache list shows saved snapshots", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "cache", "list"); err != nil {
			t.Fatalf("failed to list cache: %v", err)
		}
		if !strings.Contains(output.String(), "rec_risotto") {
			t.Errorf("expected cached session for rec_risotto, got %s", output.String())
		}

		output.Reset()
		if err := run(t, runner, "cache", "clear"); err != nil {
			t.Fatalf("failed to clear cache: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "cache", "list"); err != nil {
			t.Fatalf("failed to list cache: %v", err)
		}
		if !strings.Contains(output.String(), "No cached sessions") {
			t.Errorf("expected empty cache, got %s", output.String())
		}
	})

	t.Run("cache commands require a store", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		if err := run(t, runner, "cache", "list"); err == nil {
			t.Fatal("expected error without a snapshot store")
		}
	})

	t.Run("attach without session or recipe fails", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := run(t, runner, "session", "status"); err == nil {
			t.Fatal("expected error with no active session")
		}
	})

	t.Run("status resumes via the cache after restart", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := run(t, runner, "session", "start", "--recipe", "rec_risotto"); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		// fresh runner sharing the same backend and store, like a new
		// process invocation
		restarted := NewRunner(RunnerOpts{
			Config: runner.config,
			Store:  runner.store,
			Output: output,
		})

		output.Reset()
		if err := run(t, restarted, "session", "status"); err != nil {
			t.Fatalf("expected status to resume from cache, got %v", err)
		}
		if !strings.Contains(output.String(), "Mushroom Risotto") {
			t.Errorf("expected resumed session text, got %s", output.String())
		}
	})
}
