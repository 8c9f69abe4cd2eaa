package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/cache"
	"github.com/tasteos/cookmode/internal/cook"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *api.Client
	ctrl       *cook.Controller
	store      *cache.Store
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *api.Client
	Controller *cook.Controller
	Store      *cache.Store
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
	if opts.Client == nil {
		opts.Client = api.NewClient(opts.Config.API, opts.Logger)
	}
	if opts.Controller == nil {
		ctrlOpts := []cook.Option{cook.WithLogger(opts.Logger)}
		if opts.Config.Cook.SSEBackoffSec > 0 {
			ctrlOpts = append(ctrlOpts, cook.WithEventBackoff(time.Duration(opts.Config.Cook.SSEBackoffSec)*time.Second))
		}
		if opts.Store != nil {
			ctrlOpts = append(ctrlOpts, cook.WithStore(opts.Store))
		}
		opts.Controller = cook.New(opts.Client, ctrlOpts...)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		ctrl:       opts.Controller,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner logger, used by the TUI to redirect logs to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, recipesCommand, sessionCommand, timerCommand, suggestCommand, assistCommand, cacheCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// attach resolves the session a command operates on. A session already
// held by the controller wins, then an explicit --recipe flag, then the
// most recently active cached session.
func (r *Runner) attach(ctx context.Context, cmd *cli.Command) (*session.CookSession, error) {
	if snap := r.ctrl.Session(); snap != nil && !snap.Terminal() {
		return snap, nil
	}

	recipeID := cmd.String("recipe")
	if recipeID == "" && r.store != nil {
		if entries, err := r.store.List(ctx); err == nil {
			for _, entry := range entries {
				if entry.Status == session.StatusActive {
					recipeID = entry.RecipeID
					break
				}
			}
		}
	}
	if recipeID == "" {
		return nil, fmt.Errorf("%w: pass --recipe or run 'cookmode session start'", shared.ErrNoActiveSession)
	}

	return r.ctrl.Resume(ctx, recipeID)
}

func (r *Runner) requireStore() error {
	if r.store == nil {
		return fmt.Errorf("%w: snapshot cache not initialized, run 'cookmode setup database' first", shared.ErrServiceUnavailable)
	}
	return nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
